package recolor

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"iconkit/parallel"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Scan       string      `help:"Source folder to scan" default:"."`
	Dest       string      `help:"Destination folder for themed icons. Relative to scan dir if not absolute." default:"themed_icons"`
	Ext        []string    `help:"File extensions to recolor, case-insensitive" default:".png,.ico"`
	Theme      string      `help:"Color replacing every colored pixel, as #RGB or #RRGGBB" default:"#CC66FF"`
	Threshold  int         `help:"Channel spread above which a pixel counts as colored (0-255)" default:"10"`
	Strict     bool        `help:"Exit with an error if any file failed" default:"false"`
	DryRun     bool        `help:"Recolor in memory only, do not write anything" default:"false"`
	ThemeColor color.NRGBA `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.Threshold < 0 || c.Threshold > 255 {
		return fmt.Errorf("invalid threshold: %d", c.Threshold)
	}

	if c.ThemeColor, err = ParseTheme(c.Theme); err != nil {
		return err
	}

	exts := make([]string, 0, len(c.Ext))
	for _, ext := range c.Ext {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		return fmt.Errorf("no file extensions given")
	}
	c.Ext = exts

	return nil
}

func (c *CLICmd) Batch() *Batch {
	return &Batch{
		Scan:       c.Scan,
		Dest:       c.Dest,
		Extensions: c.Ext,
		Transform:  Transform{Theme: c.ThemeColor, Threshold: uint8(c.Threshold)},
		DryRun:     c.DryRun,
	}
}

func (c *CLICmd) Run(ctx context.Context, pool *parallel.Pool) error {
	_, stats, err := c.Batch().Run(ctx, pool)
	if err != nil {
		return err
	}

	if c.Strict && stats.Errors > 0 {
		return fmt.Errorf("error processing %d files", stats.Errors)
	}
	return nil
}
