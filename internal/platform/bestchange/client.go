// Package bestchange fetches and parses the BestChange bulk rate dump: a zip
// archive over plain HTTP containing delimited .dat listings of currencies,
// exchangers, and quoted conversion rates.
package bestchange

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

const (
	ratesFile      = "bm_rates.dat"
	currenciesFile = "bm_cy.dat"
	exchangersFile = "bm_exch.dat"
)

// Client downloads the rate dump and builds the pair-key → options table.
type Client struct {
	zipURL     string
	dataDir    string
	tracked    []string
	httpClient *http.Client
}

// New creates a BestChange client. dataDir is where the archive is unpacked;
// it is created on first use. tracked is the asset universe used to filter the
// currency listing.
func New(zipURL, dataDir string, tracked []string) *Client {
	return &Client{
		zipURL:  zipURL,
		dataDir: dataDir,
		tracked: tracked,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetRateTable fetches a fresh dump and returns the parsed rate table. Any
// failure to obtain or read the dump maps to domain.ErrRateDataUnavailable;
// individual malformed records inside a readable dump are skipped by the
// parser instead.
func (c *Client) GetRateTable(ctx context.Context) (domain.RateTable, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateDataUnavailable, err)
	}

	table, err := c.parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateDataUnavailable, err)
	}
	return table, nil
}

// refresh downloads the archive, extracts the listings into the data dir, and
// deletes the archive.
func (c *Client) refresh(ctx context.Context) error {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	zipPath := filepath.Join(c.dataDir, "info.zip")
	if err := c.download(ctx, zipPath); err != nil {
		return err
	}
	defer os.Remove(zipPath)

	return c.extract(zipPath)
}

func (c *Client) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.zipURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download dump: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download dump: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

// extract unpacks only the listings the parser needs.
func (c *Client) extract(zipPath string) error {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	wanted := map[string]bool{
		ratesFile:      true,
		currenciesFile: true,
		exchangersFile: true,
	}

	for _, entry := range archive.File {
		name := filepath.Base(entry.Name)
		if !wanted[name] {
			continue
		}
		if err := c.extractFile(entry, filepath.Join(c.dataDir, name)); err != nil {
			return err
		}
		delete(wanted, name)
	}

	if wanted[ratesFile] {
		return fmt.Errorf("archive is missing %s", ratesFile)
	}
	return nil
}

func (c *Client) extractFile(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open %s in archive: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}

// parse builds the lookups and the rate table from the extracted listings.
func (c *Client) parse() (domain.RateTable, error) {
	currencies, err := c.parseCurrencies()
	if err != nil {
		return nil, err
	}
	exchangers, err := c.parseExchangers()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(c.dataDir, ratesFile))
	if err != nil {
		return nil, fmt.Errorf("open rates listing: %w", err)
	}
	defer f.Close()

	return BuildRateTable(f, currencies, exchangers)
}

func (c *Client) parseCurrencies() (map[string]Currency, error) {
	f, err := os.Open(filepath.Join(c.dataDir, currenciesFile))
	if err != nil {
		return nil, fmt.Errorf("open currency listing: %w", err)
	}
	defer f.Close()

	return ParseCurrencies(f, c.tracked)
}

func (c *Client) parseExchangers() (map[string]string, error) {
	f, err := os.Open(filepath.Join(c.dataDir, exchangersFile))
	if err != nil {
		return nil, fmt.Errorf("open exchanger listing: %w", err)
	}
	defer f.Close()

	return ParseExchangers(f)
}
