package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/vitrina/vitrina/pkg/version"
)

// indexPage renders the landing page: a minimal endpoint directory so
// someone pointing a browser at the server can see what it speaks.
func indexPage() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>vitrina</title>
<style>
body { font-family: monospace; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
code { background: #f0f0f0; padding: 0.1rem 0.3rem; }
</style>
</head>
<body>
<h1>vitrina %s</h1>
<p>Personal figure catalog. All <code>/api</code> routes except auth require a bearer token.</p>
<ul>
<li><code>POST /api/auth/register</code> &mdash; create an account</li>
<li><code>POST /api/auth/login</code> &mdash; obtain a token</li>
<li><code>GET /api/figures</code> &mdash; list your figures (<code>?prefix=</code>, <code>?field=</code>)</li>
<li><code>POST /api/figures</code> &mdash; add a figure</li>
<li><code>GET /api/search/wordwheel?q=</code> &mdash; prefix autocomplete</li>
<li><code>GET /api/search/partial?q=&amp;offset=</code> &mdash; substring search</li>
<li><code>GET /api/firehose/ws?token=</code> &mdash; live ingestion stream</li>
<li><code>GET /api/stats</code> &mdash; catalog statistics</li>
<li><code>GET /health</code> &mdash; health check</li>
</ul>
</body>
</html>
`, templ.EscapeString(version.Version))
		return err
	})
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage().Render(r.Context(), w); err != nil {
		s.logger.Errorf("rendering index page: %v", err)
	}
}
