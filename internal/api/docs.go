package api

import (
	"log/slog"
	"net/http"
)

// htmlPage serves a static page.
func htmlPage(name, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(body)); err != nil {
			slog.Debug("docs response write failed", "page", name, "error", err)
		}
	}
}

const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TV Crosshair Sync API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    body { margin: 0; height: 100vh; display: flex; flex-direction: column; background: #0d1117; }
    nav {
      flex: 0 0 40px;
      display: flex;
      align-items: center;
      gap: 20px;
      padding: 0 20px;
      background: #161b22;
      border-bottom: 1px solid #30363d;
      font: 13px -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
    }
    nav .brand { color: #e6edf3; font-weight: 600; }
    nav a { color: #58a6ff; text-decoration: none; }
    elements-api { flex: 1 1 auto; min-height: 0; }
  </style>
</head>
<body>
  <nav>
    <span class="brand">TV Crosshair Sync</span>
    <a href="/docs">REST API</a>
    <a href="/docs/events">Event stream</a>
    <a href="/openapi.json">openapi.json</a>
  </nav>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`
