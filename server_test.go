// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proxyx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/proxyx/recovery"
	"github.com/gogama/proxyx/request"
	"github.com/gogama/proxyx/timeout"
)

// testServer is a scripted origin. Each request body carries a
// serverInstruction telling the server how to answer, and how slowly.
type testServer struct {
	*httptest.Server
	name  string
	start func(s *httptest.Server)
}

var (
	httpServer  = newTestServer("http", (*httptest.Server).Start)
	httpsServer = newTestServer("https", (*httptest.Server).StartTLS)
	http2Server = newTestServer("http2", func(s *httptest.Server) {
		s.EnableHTTP2 = true
		s.StartTLS()
	})
	servers = []*testServer{httpServer, httpsServer, http2Server}
)

// forwarder is a plain HTTP forward proxy. It answers requests for any
// host itself, as if it had forwarded them, and counts them.
var (
	forwarder = httptest.NewUnstartedServer(http.HandlerFunc(forward))
	forwarded int64
)

func newTestServer(name string, start func(s *httptest.Server)) *testServer {
	return &testServer{
		Server: httptest.NewUnstartedServer(http.HandlerFunc(serveInstruction)),
		name:   name,
		start:  start,
	}
}

func TestMain(m *testing.M) {
	for _, s := range servers {
		s.start(s.Server)
	}
	forwarder.Start()
	for _, s := range servers {
		if err := s.ping(); err != nil {
			panic(err)
		}
	}
	code := m.Run()
	for _, s := range servers {
		s.Close()
	}
	forwarder.Close()
	os.Exit(code)
}

// ping sends a trivial instruction through a patient client, so that
// tests only begin once the server answers.
func (s *testServer) ping() error {
	cl := &Client{
		HTTPDoer:      s.Client(),
		Budget:        recovery.Budget{MaxAttemptsPerProxy: 20, Sleep: 50 * time.Millisecond},
		TimeoutPolicy: timeout.Fixed(2 * time.Second),
	}
	e, err := cl.Do((&serverInstruction{StatusCode: http.StatusOK}).toPlan(context.Background(), "GET", s))
	if e.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s test server not ready: status %d, error %v", s.name, e.StatusCode(), err)
	}
	return nil
}

func serverName(s *testServer) string {
	return s.name
}

type bodyChunk struct {
	Pause time.Duration
	Data  []byte
}

type serverInstruction struct {
	HeaderPause time.Duration
	StatusCode  int
	Body        []bodyChunk
}

func (i *serverInstruction) contentLength() (n int) {
	for _, c := range i.Body {
		n += len(c.Data)
	}
	return
}

func (i *serverInstruction) toPlan(ctx context.Context, method string, s *testServer) *request.Plan {
	var body []byte
	if i.StatusCode != 0 || i.HeaderPause != 0 || i.Body != nil {
		var err error
		if body, err = json.Marshal(i); err != nil {
			panic(err)
		}
	}
	p, err := request.NewPlanWithContext(ctx, method, s.URL, body)
	if err != nil {
		panic(err)
	}
	return p
}

func serveInstruction(w http.ResponseWriter, req *http.Request) {
	var i serverInstruction
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err == nil {
		err = json.Unmarshal(b, &i)
	}
	if err != nil {
		http.Error(w, "unreadable instruction: "+err.Error(), http.StatusBadRequest)
		return
	}
	if i.StatusCode == 0 {
		http.Error(w, "instruction has no status code", http.StatusBadRequest)
		return
	}

	f := w.(http.Flusher)
	w.Header().Set("Content-Length", strconv.Itoa(i.contentLength()))
	time.Sleep(i.HeaderPause)
	w.WriteHeader(i.StatusCode)
	f.Flush()

	// Dribble each chunk out a byte at a time, spreading the chunk's
	// pause evenly across its bytes.
	for _, c := range i.Body {
		perByte := c.Pause / time.Duration(len(c.Data))
		for j := range c.Data {
			if _, err = w.Write(c.Data[j : j+1]); err != nil {
				return
			}
			f.Flush()
			time.Sleep(perByte)
		}
		if rest := c.Pause - perByte*time.Duration(len(c.Data)); rest > 0 {
			time.Sleep(rest)
		}
	}
}

func forward(w http.ResponseWriter, req *http.Request) {
	atomic.AddInt64(&forwarded, 1)
	w.Header().Set("X-Forwarded-Host", req.URL.Host)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "forwarded "+req.URL.String())
}

// deadAddress returns a local address on which nothing listens, so
// connecting to it is refused.
func deadAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}
