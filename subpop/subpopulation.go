package subpop

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goStudyAuth/criteria"
)

// DefaultName is the name of the group created for a tenant with none.
const DefaultName = "Default Consent Group"

var (
	// ErrSourceUnavailable wraps failures of the backing source.
	ErrSourceUnavailable = errors.New("subpopulation source unavailable")
	// ErrInvalidSubpopulation is returned for records missing an id or tenant.
	ErrInvalidSubpopulation = errors.New("invalid subpopulation")
)

// Subpopulation is a named eligibility rule set tied to one consent
// agreement. PublishedConsentCreatedOn identifies the revision of that
// agreement participants are expected to have signed.
type Subpopulation struct {
	ID                        string            `json:"id" yaml:"id" dynamodbav:"id"`
	TenantID                  string            `json:"tenantId" yaml:"tenantId" dynamodbav:"tenantId"`
	Name                      string            `json:"name" yaml:"name" dynamodbav:"name"`
	Description               string            `json:"description,omitempty" yaml:"description,omitempty" dynamodbav:"description,omitempty"`
	Required                  bool              `json:"required" yaml:"required" dynamodbav:"required"`
	Deleted                   bool              `json:"deleted,omitempty" yaml:"deleted,omitempty" dynamodbav:"deleted"`
	PublishedConsentCreatedOn int64             `json:"publishedConsentCreatedOn" yaml:"publishedConsentCreatedOn" dynamodbav:"publishedConsentCreatedOn"`
	Criteria                  criteria.Criteria `json:"criteria" yaml:"criteria" dynamodbav:"criteria"`
}

// RuleID implements criteria.Candidate.
func (s Subpopulation) RuleID() string { return s.ID }

// RuleCriteria implements criteria.Candidate.
func (s Subpopulation) RuleCriteria() criteria.Criteria { return s.Criteria }

// DefaultRevision is the published consent revision of every synthesized
// default group. It never changes across cache reloads.
const DefaultRevision int64 = 0

// NewDefault returns the catch-all required group for tenantID. Its id is
// the tenant id, so creating it twice is idempotent for keyed backends.
func NewDefault(tenantID string) Subpopulation {
	return Subpopulation{
		ID:                        tenantID,
		TenantID:                  tenantID,
		Name:                      DefaultName,
		Required:                  true,
		PublishedConsentCreatedOn: DefaultRevision,
	}
}

// Registry lists the live subpopulations of a tenant, most specific first.
type Registry interface {
	List(ctx context.Context, tenantID string) ([]Subpopulation, error)
}

// Source is a backend holding subpopulation records, deleted ones included.
type Source interface {
	Load(ctx context.Context, tenantID string) ([]Subpopulation, error)
}

// Creator is implemented by sources that can persist the default group.
type Creator interface {
	Create(ctx context.Context, s Subpopulation) error
}

// BestMatch picks the single subpopulation that applies to cctx.
// ok is false when nothing matches.
func BestMatch(subs []Subpopulation, cctx criteria.Context) (Subpopulation, bool) {
	return criteria.SelectBestMatch(cctx, subs)
}

// Validate checks every record against the tenant's data group vocabulary.
func Validate(subs []Subpopulation, vocabulary []string) error {
	var errs []error
	for _, s := range subs {
		if s.ID == "" || s.TenantID == "" {
			errs = append(errs, fmt.Errorf("%w: id and tenantId are required (name %q)", ErrInvalidSubpopulation, s.Name))
			continue
		}
		if err := criteria.Validate(s.Criteria, vocabulary); err != nil {
			errs = append(errs, fmt.Errorf("subpopulation %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

func live(subs []Subpopulation) []Subpopulation {
	out := make([]Subpopulation, 0, len(subs))
	for _, s := range subs {
		if !s.Deleted {
			out = append(out, s)
		}
	}
	return out
}
