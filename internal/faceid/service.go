package faceid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/database"
	"github.com/kozaktomas/face-verifier/internal/metrics"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Matcher     Matcher
	Credentials CredentialPolicy // defaults to BcryptCredentials

	// FaceIndex answers nearest-neighbour queries for the duplicate-face
	// check. When it also has an Add method, newly registered embeddings are
	// added to it.
	FaceIndex          database.NearestFinder
	DuplicateFaceCheck bool

	Model   string // recorded with every stored embedding
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Service runs the registration and verification pipelines.
type Service struct {
	store     database.IdentityWriter
	extractor Extractor
	matcher   Matcher
	creds     CredentialPolicy
	index     database.NearestFinder
	dupCheck  bool
	model     string
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// indexAdder is implemented by face indexes that accept new embeddings.
type indexAdder interface {
	Add(identifier string, embedding []float32) error
}

// NewService creates a Service over the given store and extractor.
func NewService(store database.IdentityWriter, extractor Extractor, opts ServiceOptions) *Service {
	if opts.Matcher.Threshold <= 0 {
		opts.Matcher = NewMatcher(0)
	}
	if opts.Credentials == nil {
		opts.Credentials = BcryptCredentials{}
	}
	return &Service{
		store:     store,
		extractor: extractor,
		matcher:   opts.Matcher,
		creds:     opts.Credentials,
		index:     opts.FaceIndex,
		dupCheck:  opts.DuplicateFaceCheck,
		model:     opts.Model,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Threshold returns the match threshold in use.
func (s *Service) Threshold() float64 {
	return s.matcher.Threshold
}

// Model returns the model name recorded with new identities.
func (s *Service) Model() string {
	return s.model
}

// Compare extracts embeddings from two images and matches them against each other.
func (s *Service) Compare(ctx context.Context, a, b []byte) (float64, bool, error) {
	ea, err := s.extractor.Extract(ctx, a)
	if err != nil {
		return 0, false, fmt.Errorf("first image: %w", err)
	}
	eb, err := s.extractor.Extract(ctx, b)
	if err != nil {
		return 0, false, fmt.Errorf("second image: %w", err)
	}
	d, ok := s.matcher.Compare(ea, eb)
	return d, ok, nil
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

type field struct {
	name    string
	present bool
}

// requireFields returns ErrValidation naming every missing field.
func requireFields(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// storageError wraps a store failure so that it matches ErrStorage.
func storageError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
