package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/store"
)

// maxBodyBytes bounds request bodies; the payload itself is capped far
// lower by qr.MaxPayload.
const maxBodyBytes = 64 << 10

type qrRequest struct {
	Text string `json:"text"`
}

type qrDataResponse struct {
	ID      string `json:"id,omitempty"`
	Level   string `json:"level"`
	Version int    `json:"version"`
	Modules int    `json:"modules"`
	Scale   int    `json:"scale"`
	Size    int    `json:"size"`
	PNG     string `json:"png"`
}

// readText extracts the text to encode from a JSON body (POST) or the
// "text" query parameter (GET).
func readText(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method != http.MethodPost {
		return r.URL.Query().Get("text"), nil
	}
	var req qrRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return "", err
	}
	return req.Text, nil
}

// generate runs the pipeline and records it. It writes an error response
// and returns nil on failure.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*qr.Image, string) {
	text, err := readText(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, ""
	}

	img, err := s.Generator.Generate(text)
	if err != nil {
		if qr.IsInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, ""
		}
		s.Log.Error("qr generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate QR code")
		return nil, ""
	}

	var id string
	if s.History != nil {
		g := &store.Generation{
			Text:    text,
			Level:   string(img.Level),
			Version: img.Version,
			Modules: img.Modules,
			Scale:   img.Scale,
			Pixels:  img.Pixels,
			Bytes:   len(img.PNG),
			Source:  "api",
		}
		if err := s.History.Save(g); err != nil {
			s.Log.Error("record history failed", "error", err)
		} else {
			id = g.ID
		}
	}
	return img, id
}

func (s *Server) handleQRImage(w http.ResponseWriter, r *http.Request) {
	img, _ := s.generate(w, r)
	if img == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img.PNG)
}

func (s *Server) handleQRData(w http.ResponseWriter, r *http.Request) {
	img, id := s.generate(w, r)
	if img == nil {
		return
	}
	writeJSON(w, http.StatusOK, qrDataResponse{
		ID:      id,
		Level:   string(img.Level),
		Version: img.Version,
		Modules: img.Modules,
		Scale:   img.Scale,
		Size:    img.Pixels,
		PNG:     base64.StdEncoding.EncodeToString(img.PNG),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(qrPageHTML))
}

// --- history ----------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	gens, err := s.History.Recent(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}

func (s *Server) handleHistorySearch(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}

	gens, err := s.History.Search(q, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	g, err := s.History.Get(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

const qrPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>qrpop</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #0a0a0a;
    color: #e0e0e0;
    display: flex;
    justify-content: center;
    align-items: center;
    min-height: 100vh;
  }
  .card {
    background: #1a1a1a;
    border: 1px solid #333;
    border-radius: 16px;
    padding: 32px;
    max-width: 560px;
    width: 100%;
  }
  h1 { font-size: 20px; font-weight: 600; margin-bottom: 16px; }
  textarea {
    width: 100%; height: 140px;
    background: #0f0f0f; color: #e0e0e0;
    border: 1px solid #333; border-radius: 8px;
    padding: 8px; font-size: 14px; resize: vertical;
  }
  button {
    margin-top: 12px; padding: 8px 20px;
    border: 0; border-radius: 8px;
    background: #4ade80; color: #0a0a0a; font-weight: 600; cursor: pointer;
  }
  #status { font-size: 14px; color: #888; margin-top: 12px; }
  #status.error { color: #f87171; }
  #qr-container { margin-top: 20px; text-align: center; }
  #qr-container img { max-width: 100%; background: #fff; border-radius: 8px; }
</style>
</head>
<body>
<div class="card">
  <h1>QR code generator</h1>
  <textarea id="text" placeholder="Type the text to encode..."></textarea>
  <button id="generate">Generate</button>
  <div id="status">Ready.</div>
  <div id="qr-container"></div>
</div>
<script>
(function() {
  var textEl = document.getElementById('text');
  var statusEl = document.getElementById('status');
  var container = document.getElementById('qr-container');

  function setStatus(msg, isError) {
    statusEl.textContent = msg;
    statusEl.className = isError ? 'error' : '';
  }

  document.getElementById('generate').addEventListener('click', function() {
    if (!textEl.value) {
      setStatus('Please enter text to encode.', true);
      return;
    }
    setStatus('Generating QR code...', false);
    fetch('/qr/data', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ text: textEl.value })
    })
      .then(function(r) { return r.json().then(function(d) { return { ok: r.ok, data: d }; }); })
      .then(function(res) {
        if (!res.ok) {
          setStatus('Failed to generate QR code: ' + res.data.error, true);
          return;
        }
        while (container.firstChild) container.removeChild(container.firstChild);
        var img = document.createElement('img');
        img.setAttribute('alt', 'QR Code');
        img.setAttribute('src', 'data:image/png;base64,' + res.data.png);
        container.appendChild(img);
        setStatus('Version ' + res.data.version + ', ' + res.data.level + ' correction, ' +
          res.data.size + 'x' + res.data.size + ' px', false);
      })
      .catch(function() {
        setStatus('Connection error.', true);
      });
  });
})();
</script>
</body>
</html>`
