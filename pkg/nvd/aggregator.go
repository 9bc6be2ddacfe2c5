package nvd

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator turns a dependency triple into every CVE known for it
type Aggregator struct {
	lookup      Lookup
	maxParallel int
	logger      *zap.Logger
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithMaxParallel bounds the number of concurrent detail fetches. Zero or
// less means unbounded.
func WithMaxParallel(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.maxParallel = n
	}
}

// WithLogger sets the aggregator logger
func WithLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates a new aggregator on top of a lookup implementation
func NewAggregator(lookup Lookup, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		lookup: lookup,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Aggregate validates the triple, resolves it to CPE entries and fetches the
// CVEs of every entry concurrently. Any failed fetch fails the whole call;
// partial results are never returned. CVEs are ordered by resolver order.
func (a *Aggregator) Aggregate(ctx context.Context, name, version, vendor, credential string) (*Result, error) {
	id, err := Validate(name, version, vendor)
	if err != nil {
		return nil, err
	}

	cpes, err := a.lookup.ResolveIdentifier(ctx, id, credential)
	if err != nil {
		a.logger.Warn("cpe resolution failed", zap.String("match", id.MatchString()), zap.Error(err))
		return nil, &AggregationError{Stage: StageResolve, Err: err}
	}

	result := &Result{
		Identifier:      id,
		Platforms:       cpes,
		Vulnerabilities: []CVE{},
	}
	if len(cpes) == 0 {
		return result, nil
	}

	perEntry := make([][]CVE, len(cpes))

	g, gctx := errgroup.WithContext(ctx)
	if a.maxParallel > 0 {
		g.SetLimit(a.maxParallel)
	}

	for i, cpe := range cpes {
		g.Go(func() error {
			cves, err := a.lookup.FetchDetails(gctx, cpe.Name, credential)
			if err != nil {
				return err
			}
			perEntry[i] = cves
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Warn("cve fan-out failed", zap.String("match", id.MatchString()), zap.Int("entries", len(cpes)), zap.Error(err))
		return nil, &AggregationError{Stage: StageDetail, Err: err}
	}

	for _, cves := range perEntry {
		result.Vulnerabilities = append(result.Vulnerabilities, cves...)
	}

	a.logger.Debug("aggregation complete",
		zap.String("match", id.MatchString()),
		zap.Int("entries", len(cpes)),
		zap.Int("vulnerabilities", len(result.Vulnerabilities)),
	)

	return result, nil
}
