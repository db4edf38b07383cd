// Package benchmarks compares Aurora's request-handling path against
// the competing frameworks in the retrieved corpus (gin, echo, fiber,
// fasthttp), mirroring the teacher's own
// benchmarks/competitors/comparison_test.go structure — one b.Run per
// framework doing the same simple-GET round trip — but driving Aurora
// itself instead of net/http as the baseline.
package benchmarks

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gofiber/fiber/v2"
	"github.com/labstack/echo/v4"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/bufpool"
	"github.com/aurorahttp/aurora/internal/conn"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
	"github.com/aurorahttp/aurora/internal/worker"
)

func BenchmarkComparisonSimpleGET(b *testing.B) {
	b.Run("aurora", func(b *testing.B) {
		bufs := bufpool.New(false)
		cfg := worker.Config{
			Addr:       "127.0.0.1:0",
			ConnConfig: conn.DefaultConfig(),
			Handler: func(_ context.Context, _ *conn.Connection, req *httpparser.Request, resp *response.Response) {
				resp.Status = 200
				resp.SetBody([]byte("OK"))
			},
		}
		w, err := worker.New(1, cfg, bufs)
		if err != nil {
			b.Fatalf("worker.New: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Start(ctx)
		addr := w.Addr().String()

		client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 100, DisableCompression: true}}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			resp, err := client.Get("http://" + addr + "/")
			if err != nil {
				b.Fatal(err)
			}
			resp.Body.Close()
		}
	})

	b.Run("gin", func(b *testing.B) {
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.GET("/", func(c *gin.Context) { c.String(200, "OK") })
		server := httptest.NewServer(r)
		defer server.Close()

		client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 100, DisableCompression: true}}
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			resp, err := client.Get(server.URL)
			if err != nil {
				b.Fatal(err)
			}
			resp.Body.Close()
		}
	})

	b.Run("echo", func(b *testing.B) {
		e := echo.New()
		e.GET("/", func(c echo.Context) error { return c.String(200, "OK") })
		server := httptest.NewServer(e)
		defer server.Close()

		client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 100, DisableCompression: true}}
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			resp, err := client.Get(server.URL)
			if err != nil {
				b.Fatal(err)
			}
			resp.Body.Close()
		}
	})

	b.Run("fiber", func(b *testing.B) {
		app := fiber.New(fiber.Config{DisableStartupMessage: true})
		app.Get("/", func(c *fiber.Ctx) error { return c.SendString("OK") })

		ln := fasthttputil.NewInmemoryListener()
		defer ln.Close()
		go app.Listener(ln)

		client := &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) { return ln.Dial() },
			},
		}
		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			resp, err := client.Get("http://fiber/")
			if err != nil {
				b.Fatal(err)
			}
			resp.Body.Close()
		}
	})

	b.Run("fasthttp", func(b *testing.B) {
		handler := func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.WriteString("OK")
		}
		server := &fasthttp.Server{Handler: handler}
		ln := fasthttputil.NewInmemoryListener()
		defer ln.Close()
		go server.Serve(ln)

		client := &fasthttp.Client{Dial: func(addr string) (net.Conn, error) { return ln.Dial() }}
		var req fasthttp.Request
		var resp fasthttp.Response
		req.SetRequestURI("http://localhost/")

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			client.Do(&req, &resp)
			resp.Reset()
		}
	})
}

// BenchmarkAuroraFullApp measures the full App.dispatch path — router,
// middleware pipeline, exception dispatch, backpressure admission —
// rather than the bare worker+handler path BenchmarkComparisonSimpleGET
// uses for its apples-to-apples framework comparison.
func BenchmarkAuroraFullApp(b *testing.B) {
	cfg := aurora.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.NumWorkers = 1

	a := aurora.NewWithConfig(cfg)
	_ = a.Get("/", func(c *aurora.Context) error { return c.Text(200, "OK") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)
	addr := a.Addr().String()

	client := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 100, DisableCompression: true}}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		resp, err := client.Get("http://" + addr + "/")
		if err != nil {
			b.Fatal(err)
		}
		resp.Body.Close()
	}
}
