package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Register one identity per photo in a directory",
	Long: `Register one identity per image file in a directory. The file name
without extension is the identifier. Display names and credentials come
from a YAML file keyed by identifier:

  alice@example.com:
    name: Alice
    credential: s3cret

Photos without an entry are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().String("credential-file", "", "YAML file with name and credential per identifier")
	enrollDirCmd.Flags().Int("concurrency", 4, "Number of parallel registrations")
	enrollDirCmd.Flags().Bool("dry-run", false, "List what would be registered without registering")
	_ = enrollDirCmd.MarkFlagRequired("credential-file")
}

// enrollEntry is one identity in the credential file.
type enrollEntry struct {
	Name       string `yaml:"name"`
	Credential string `yaml:"credential"`
}

// enrollJob is a photo matched to its credential file entry.
type enrollJob struct {
	path       string
	identifier string
	entry      enrollEntry
}

var enrollImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func loadEnrollEntries(path string) (map[string]enrollEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from the command line
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}
	var entries map[string]enrollEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing credential file: %w", err)
	}
	return entries, nil
}

// collectEnrollJobs matches image files in dir to credential entries.
// Files without an entry are returned as skipped.
func collectEnrollJobs(dir string, entries map[string]enrollEntry) ([]enrollJob, []string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading directory: %w", err)
	}

	var jobs []enrollJob
	var skipped []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if !enrollImageExts[ext] {
			continue
		}
		identifier := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		entry, ok := entries[identifier]
		if !ok {
			skipped = append(skipped, f.Name())
			continue
		}
		if entry.Name == "" {
			entry.Name = identifier
		}
		jobs = append(jobs, enrollJob{
			path:       filepath.Join(dir, f.Name()),
			identifier: identifier,
			entry:      entry,
		})
	}
	return jobs, skipped, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	dryRun := mustGetBool(cmd, "dry-run")
	if concurrency < 1 {
		return errors.New("--concurrency must be at least 1")
	}

	entries, err := loadEnrollEntries(mustGetString(cmd, "credential-file"))
	if err != nil {
		return err
	}
	jobs, skipped, err := collectEnrollJobs(dir, entries)
	if err != nil {
		return err
	}

	fmt.Printf("Photos to register: %d (skipping %d without credentials)\n", len(jobs), len(skipped))
	if len(jobs) == 0 {
		return nil
	}
	if dryRun {
		for _, j := range jobs {
			fmt.Printf("  %s -> %s (%s)\n", filepath.Base(j.path), j.identifier, j.entry.Name)
		}
		return nil
	}

	a, err := newApp(ctx, appOptions{withStore: true, withExtractor: true, withIndex: true})
	if err != nil {
		return err
	}
	defer a.close()

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("Registering"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var mu sync.Mutex
	failures := make(map[string]string)
	var registered int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, job := range jobs {
		g.Go(func() error {
			defer bar.Add(1)

			photo, err := os.ReadFile(job.path)
			if err == nil {
				_, err = a.service.Register(gctx, faceid.RegisterRequest{
					Identifier:  job.identifier,
					DisplayName: job.entry.Name,
					Credential:  job.entry.Credential,
					Photo:       photo,
				})
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[job.identifier] = faceid.Outcome(err)
				// Storage failures will not get better for the remaining photos.
				if errors.Is(err, faceid.ErrStorage) {
					return err
				}
				return nil
			}
			registered++
			return nil
		})
	}

	groupErr := g.Wait()
	fmt.Println()
	a.saveIndex()

	fmt.Printf("\nCompleted: %d registered, %d failed\n", registered, len(failures))
	if len(failures) > 0 {
		ids := make([]string, 0, len(failures))
		for id := range failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %s: %s\n", id, failures[id])
		}
	}
	if groupErr != nil {
		return fmt.Errorf("enrollment aborted: %w", groupErr)
	}
	return nil
}
