package gateway

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/streamgate/internal/store"
)

var playerTmpl = template.Must(template.New("player").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Stream</title>
    <style>
      body { font-family: Arial, sans-serif; background: #0b1020; color: #fff; margin: 0; display: grid; place-items: center; height: 100vh; }
      .player { width: min(960px, 95vw); }
      video, audio { width: 100%; height: auto; background: #000; }
      a { color: #8ab4ff; }
    </style>
  </head>
  <body>
    <div class="player">
{{- if .Audio}}
      <audio controls autoplay>
        <source src="/stream/{{.Token}}" type="{{.MIMEType}}" />
      </audio>
{{- else}}
      <video controls autoplay>
        <source src="/stream/{{.Token}}" type="{{.MIMEType}}" />
      </video>
{{- end}}
      <p><a href="/stream/{{.Token}}">Direct stream link</a></p>
    </div>
  </body>
</html>
`))

type playerData struct {
	Audio    bool
	Token    string
	MIMEType string
}

// handlePlayer returns an http.HandlerFunc for GET /player/{token}: a thin
// HTML5 player wrapped around the stream URL.
func (g *Gateway) handlePlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		ref, err := g.tokens.Get(r.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "invalid or expired token", http.StatusNotFound)
			return
		}
		if err != nil {
			g.logger.Error("player token lookup failed", "error", err)
			http.Error(w, "token lookup failed", http.StatusInternalServerError)
			return
		}

		mimeType := ref.MIMEType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := playerTmpl.Execute(w, playerData{
			Audio:    ref.MediaType == "audio",
			Token:    token,
			MIMEType: mimeType,
		}); err != nil {
			g.logger.Error("player template render failed", "error", err)
		}
	}
}
