package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/designview/internal/config"
	"github.com/taigrr/designview/internal/logger"
	"github.com/taigrr/designview/internal/server"
	"github.com/taigrr/designview/pkg/catalog"
	"github.com/taigrr/designview/pkg/models"
	"github.com/taigrr/designview/pkg/render"
	"github.com/taigrr/designview/pkg/viewer"
)

// selection picks a design either by URL or by catalog lookup.
type selection struct {
	server   string
	material string
	specs    []string
}

func (s *selection) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.server, "server", "", "catalog server to resolve --material/--spec against")
	cmd.Flags().StringVar(&s.material, "material", "", "material ID to look up")
	cmd.Flags().StringArrayVar(&s.specs, "spec", nil, "specification as key=value (repeatable)")
}

// reference returns the design URL to load. No URL and no lookup means no
// model; a lookup that finds nothing also means no model.
func (s *selection) reference(ctx context.Context, args []string) (viewer.DesignReference, error) {
	if len(args) > 0 {
		return viewer.DesignReference(args[0]), nil
	}
	if s.material == "" {
		return "", nil
	}
	if s.server == "" {
		return "", errors.New("--material needs --server")
	}

	specs, err := catalog.ParseSpecifications(s.specs)
	if err != nil {
		return "", err
	}
	return lookupDesign(ctx, http.DefaultClient, s.server, s.material, specs)
}

// lookupDesign asks a catalog server for the design matching material and
// specs exactly.
func lookupDesign(ctx context.Context, client *http.Client, base, material string, specs map[string]string) (viewer.DesignReference, error) {
	q := url.Values{}
	q.Set("material", material)
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Add("spec", k+"="+specs[k])
	}

	u := strings.TrimSuffix(base, "/") + "/api/designs/lookup?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup design: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out server.LookupResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("decode lookup response: %w", err)
		}
		return viewer.DesignReference(out.URL), nil
	case http.StatusNotFound:
		logger.Log.Warn("no design for selection, showing placeholder",
			zap.String("material", material), zap.Any("specifications", specs))
		return "", nil
	default:
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return "", fmt.Errorf("lookup design: status %d: %s", resp.StatusCode, e.Error)
	}
}

func newDecoder(cfg *config.Config) *models.AutoDecoder {
	var step *models.STEPDecoder
	if cfg.Decoder.STEP.Enabled {
		step = models.NewSTEPDecoder(cfg.Decoder.STEP.Command, cfg.Decoder.STEP.Args)
	}
	return models.NewAutoDecoder(step)
}

func newLoader(cfg *config.Config, log *zap.Logger) *viewer.Loader {
	l := viewer.NewLoader(nil, newDecoder(cfg), log)
	if cfg.Viewer.MaxBytes > 0 {
		l.MaxBytes = cfg.Viewer.MaxBytes
	}
	return l
}

func viewerOptions(cfg *config.Config, log *zap.Logger) (viewer.Options, error) {
	opts := viewer.DefaultOptions()
	opts.FPS = cfg.Viewer.FPS
	opts.LoadTimeout = cfg.Viewer.LoadTimeout
	opts.FOV = cfg.Viewer.FOV
	opts.DampingFactor = cfg.Viewer.Damping
	opts.Logger = log
	if cfg.Viewer.Background != "" {
		bg, err := render.ParseHex(cfg.Viewer.Background)
		if err != nil {
			return opts, fmt.Errorf("viewer background: %w", err)
		}
		opts.Background = bg
	}
	return opts, nil
}
