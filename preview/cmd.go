package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
)

type SendCmd struct {
	Target   string        `help:"Endpoint to hit when --url is not set" enum:"local,prod" default:"local"`
	URL      string        `help:"Create endpoint URL, overrides --target" env:"PREVIEW_URL"`
	HTML     string        `help:"HTML snippet to send, defaults to a fixed heading"`
	Files    bool          `help:"Send the files form (base64 index.html) instead of the html form" default:"false"`
	Repeat   int           `help:"Number of sequential requests" default:"1"`
	Interval time.Duration `help:"Pause between repeated requests" default:"1s"`
	Timeout  time.Duration `help:"Per request timeout, 0 for none" default:"0s"`
}

type StubCmd struct {
	Addr    string `help:"Listen address" default:":3000"`
	BaseURL string `help:"Base URL used in returned preview links" default:"http://localhost:3000"`
}

type CLICmd struct {
	Send SendCmd `cmd:"" default:"1" help:"POST one preview to the create endpoint and print the answer"`
	Stub StubCmd `cmd:"" help:"Serve a local in-memory preview create endpoint"`
}

func (c *SendCmd) Validate(kctx *kong.Context) error {
	if c.HTML == "" {
		c.HTML = DefaultHTML
	}

	if c.URL == "" {
		c.URL = LocalURL
		if c.Target == "prod" {
			c.URL = ProdURL
		}
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: must be an absolute http(s) URL", c.URL)
	}

	if c.Repeat < 1 {
		return fmt.Errorf("invalid repeat count: %d", c.Repeat)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}

func (c *SendCmd) Payload() any {
	if c.Files {
		return NewFilesPayload(WrapHTML(c.HTML))
	}
	return HTMLPayload{HTML: c.HTML}
}

// Run sends the payload Repeat times, one after another. The first failing
// request ends the run.
func (c *SendCmd) Run(ctx context.Context, out io.Writer) error {
	client := NewClient(c.URL, c.Timeout)
	payload := c.Payload()

	for i := range c.Repeat {
		if i > 0 {
			select {
			case <-time.After(c.Interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, err := client.Create(ctx, payload)
		if resp != nil {
			slog.Info("preview request done", "url", client.URL(), "attempt", i+1,
				"status", resp.StatusCode, "duration", resp.Duration)
			if printErr := resp.PrintStatus(out); printErr != nil {
				return fmt.Errorf("could not print response: %w", printErr)
			}
		}
		if err != nil {
			return err
		}

		if err := resp.PrintBody(out); err != nil {
			return fmt.Errorf("could not print response: %w", err)
		}
	}
	return nil
}

func (c *StubCmd) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	return NewStub(NewStore(), c.BaseURL).Serve(ctx, c.Addr)
}
