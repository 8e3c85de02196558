package wsxport

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// wsGUID is the magic value RFC 6455 §1.3 defines for computing
// Sec-WebSocket-Accept from Sec-WebSocket-Key.
const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// maxHandshakeHeader bounds how many bytes of request line + headers we'll
// buffer looking for the blank-line terminator, before giving up on an
// oversized or malformed handshake.
const maxHandshakeHeader = 8192

var headerTerminator = []byte("\r\n\r\n")

// tryHandshake attempts to complete an RFC 6455 server handshake on p
// without blocking past "now". ok=false (no error) means the full request
// has not arrived yet and the caller should park p and retry on a later
// tick -- nothing has been consumed from p, so this is safe to call
// repeatedly. A non-nil error means the handshake failed outright and the
// connection should be closed.
func tryHandshake(p *peeker) (ok bool, err error) {
	raw, ok, err := p.peekAtLeast(1)
	if !ok || err != nil {
		return ok, err
	}

	// Peek progressively larger windows until we find the terminator or
	// hit the cap. Re-peeking is cheap: bufio.Reader just grows/serves
	// from the same underlying buffer.
	for size := 256; ; size *= 2 {
		if size > maxHandshakeHeader {
			size = maxHandshakeHeader
		}

		raw, ok, err = p.peekAtLeast(size)
		if err != nil {
			return true, err
		}
		if !ok {
			// Fewer bytes than this window have arrived. A complete
			// request shorter than the window is already buffered in
			// full, so look for the terminator in what is there before
			// trying again next tick.
			buffered, _ := p.br.Peek(p.br.Buffered())
			if idx := bytes.Index(buffered, headerTerminator); idx >= 0 {
				total := idx + len(headerTerminator)
				return finishHandshake(p, buffered[:total], total)
			}
			return false, nil
		}

		if idx := bytes.Index(raw, headerTerminator); idx >= 0 {
			total := idx + len(headerTerminator)
			return finishHandshake(p, raw[:total], total)
		}

		if size >= maxHandshakeHeader {
			return true, fmt.Errorf("wsxport: handshake request exceeds %d bytes", maxHandshakeHeader)
		}
	}
}

func finishHandshake(p *peeker, header []byte, total int) (bool, error) {
	method, _, headers, err := parseRequestLine(header)
	if err != nil {
		return true, err
	}

	if method != "GET" {
		return true, fmt.Errorf("wsxport: handshake method must be GET, got %v", method)
	}
	if !strings.EqualFold(headers.Get("Upgrade"), "websocket") {
		return true, fmt.Errorf("wsxport: missing Upgrade: websocket header")
	}
	if !containsToken(headers.Get("Connection"), "upgrade") {
		return true, fmt.Errorf("wsxport: missing Connection: Upgrade header")
	}

	key := headers.Get("Sec-WebSocket-Key")
	if key == "" {
		return true, fmt.Errorf("wsxport: missing Sec-WebSocket-Key header")
	}

	if err := p.discard(total); err != nil {
		return true, fmt.Errorf("wsxport: discard handshake request: %w", err)
	}

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(key) + "\r\n\r\n"

	if _, err := p.conn.Write([]byte(resp)); err != nil {
		return true, fmt.Errorf("wsxport: write handshake response: %w", err)
	}

	return true, nil
}

func acceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key + wsGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func containsToken(headerValue, token string) bool {
	for _, part := range strings.Split(headerValue, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// parseRequestLine parses a complete HTTP request line plus headers (no
// body) out of raw. It deliberately avoids net/http.ReadRequest: that
// function is not safely resumable across would-block retries on the same
// reader (see peeker's doc comment), so once we know via headerTerminator
// that the full header block is buffered, we hand net/http.Header the job
// of case-insensitive lookups without asking it to do any I/O of its own.
func parseRequestLine(raw []byte) (method, path string, headers http.Header, err error) {
	lines := strings.Split(string(raw), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", "", nil, fmt.Errorf("wsxport: empty request line")
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 3 {
		return "", "", nil, fmt.Errorf("wsxport: malformed request line %q", lines[0])
	}
	method, path = fields[0], fields[1]

	headers = make(http.Header)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		headers.Add(strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]))
	}

	return method, path, headers, nil
}
