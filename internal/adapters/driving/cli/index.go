package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/connectors/filesystem"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/logger"
	"github.com/custodia-labs/veritas/internal/normalisers/html"
)

const maxFetchBytes = 10 << 20

var (
	indexSectionizer string
	indexWatch       bool
	indexExtensions  []string
)

// httpClient fetches pages for `veritas index <url>`.
var httpClient = &http.Client{Timeout: 30 * time.Second}

var indexCmd = &cobra.Command{
	Use:   "index [path|url...]",
	Short: "Add pages to the tenant's corpus",
	Long: `Indexes local files, directories and http(s) URLs. HTML is split into
heading sections; other text is split into paragraph chunks. Re-indexing a
page replaces its previous sections.

Examples:
  veritas index --tenant acme ./site
  veritas index --tenant acme https://example.com/faq
  veritas index --tenant acme ./docs --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexSectionizer, "sectionizer", "",
		"sectionizer to use (headings, positional); default from settings")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep running and re-index changed files")
	indexCmd.Flags().StringSliceVar(&indexExtensions, "ext", nil,
		"file extensions to read (default .html,.htm,.txt,.md)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	indexer, err := selectIndexer()
	if err != nil {
		return err
	}
	tenant, err := resolveTenant()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var total, failed int
	var sources []*filesystem.Source
	for _, arg := range args {
		if isURL(arg) {
			page, err := fetchPage(ctx, arg)
			if err == nil {
				err = indexOne(cmd, indexer, tenant, page)
			}
			if err != nil {
				cmd.PrintErrf("  %s: %v\n", arg, err)
				failed++
				continue
			}
			total++
			continue
		}

		src := filesystem.New(arg, indexExtensions...)
		sources = append(sources, src)
		n, f, err := indexSource(ctx, cmd, indexer, tenant, src)
		total += n
		failed += f
		if err != nil {
			return err
		}
	}

	cmd.Printf("Indexed %d page(s)", total)
	if failed > 0 {
		cmd.Printf(", %d failed", failed)
	}
	cmd.Println()

	if indexWatch && len(sources) > 0 {
		return watchSources(ctx, cmd, indexer, tenant, sources)
	}
	if failed > 0 {
		return fmt.Errorf("%d page(s) failed to index", failed)
	}
	return nil
}

func selectIndexer() (driving.IndexingService, error) {
	if indexSectionizer != "" {
		if newIndexer == nil {
			return nil, errors.New("sectionizer selection not available")
		}
		return newIndexer(indexSectionizer)
	}
	if indexingService == nil {
		return nil, errors.New("indexing service not configured")
	}
	return indexingService, nil
}

func indexSource(
	ctx context.Context,
	cmd *cobra.Command,
	indexer driving.IndexingService,
	tenant domain.TenantID,
	src *filesystem.Source,
) (indexed, failed int, err error) {
	pages, errs := src.Pages(ctx)
	for page := range pages {
		if err := indexOne(cmd, indexer, tenant, page); err != nil {
			cmd.PrintErrf("  %s: %v\n", page.URL, err)
			failed++
			continue
		}
		indexed++
	}
	for e := range errs {
		err = errors.Join(err, e)
	}
	return indexed, failed, err
}

func indexOne(cmd *cobra.Command, indexer driving.IndexingService, tenant domain.TenantID, page domain.Page) error {
	res, err := indexer.IndexPage(commandContext(cmd), tenant, page)
	if err != nil {
		return err
	}
	cmd.Printf("  %s (%d sections)\n", res.URL, res.Sections)
	return nil
}

func watchSources(
	ctx context.Context,
	cmd *cobra.Command,
	indexer driving.IndexingService,
	tenant domain.TenantID,
	sources []*filesystem.Source,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan filesystem.Change)
	for _, src := range sources {
		changes, err := src.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watching: %w", err)
		}
		defer src.Close() //nolint:errcheck
		go func() {
			for c := range changes {
				select {
				case merged <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	cmd.Println("Watching for changes (ctrl+c to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-merged:
			if c.Type == filesystem.ChangeDeleted {
				logger.ForTenant(tenant.String()).Warn("%s was removed; its sections stay indexed", c.Page.URL)
				continue
			}
			if err := indexOne(cmd, indexer, tenant, c.Page); err != nil {
				cmd.PrintErrf("  %s: %v\n", c.Page.URL, err)
			}
		}
	}
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// fetchPage downloads url. HTML responses fill Page.HTML, anything else
// Page.Text.
func fetchPage(ctx context.Context, url string) (domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return domain.Page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "veritas/"+version)

	resp, err := httpClient.Do(req)
	if err != nil {
		return domain.Page{}, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Page{}, fmt.Errorf("fetching: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return domain.Page{}, fmt.Errorf("reading body: %w", err)
	}

	page := domain.Page{URL: url}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		page.HTML = string(body)
		page.Title = html.Title(page.HTML, url)
	} else {
		page.Text = string(body)
	}
	return page, nil
}
