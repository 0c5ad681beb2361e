// Package telegram implements the Telegram Bot API channel module.
//
// The module listens for updates (long polling or webhook), issues
// streaming tokens for native media messages, and re-sends documents that
// carry video, audio, or image payloads as native media so Telegram serves
// them in a streamable form. It registers the "media.source" service that
// the HTTP gateway's relay pulls file content from.
package telegram
