// Package kinds is the entity-kind catalog: one descriptor per family of
// effective-dated facts, declaring its action key, payload schema, and
// per-kind policies. The dispatcher consults the catalog so the engine stays
// generic; adding a kind is a catalog entry, not new code.
package kinds

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"tempora/internal/record/models"
	id "tempora/pkg/domain"
	dErrors "tempora/pkg/domain-errors"
)

// Descriptor declares one entity kind.
type Descriptor struct {
	Kind      id.EntityKind
	ActionKey string
	Label     string

	// Required fields must be present and non-empty in every payload.
	Required []string
	// Allowed is the full field vocabulary; payload fields outside it are
	// rejected so typos don't silently persist.
	Allowed []string

	// Rules adds per-field validation beyond presence.
	Rules map[string][]validation.Rule

	// Prehistory permits effective dates earlier than the slot's earliest
	// version. Default is to reject; kinds whose facts legitimately predate
	// data entry (dependents, assets) opt in.
	Prehistory bool
}

// Catalog resolves action keys and kinds to descriptors.
type Catalog struct {
	byAction map[string]*Descriptor
	byKind   map[id.EntityKind]*Descriptor
}

// Default returns the catalog of HR record kinds.
func Default() *Catalog {
	descriptors := []*Descriptor{
		{
			Kind:      id.KindBankDetails,
			ActionKey: "employee_bank.changed",
			Label:     "Bank details change",
			Required:  []string{"bank_code", "branch_code", "account_number"},
			Allowed:   []string{"bank_code", "branch_code", "account_number", "account_owner_name"},
			Rules: map[string][]validation.Rule{
				"bank_code":      {validation.Length(1, 8)},
				"branch_code":    {validation.Length(1, 8)},
				"account_number": {validation.Length(1, 32)},
			},
		},
		{
			Kind:      id.KindAddress,
			ActionKey: "employee_address.changed",
			Label:     "Address change",
			Required:  []string{"city_name", "street"},
			Allowed: []string{
				"city_name", "city_code", "street", "house_number", "apartment",
				"entrance", "postal_code", "phone", "phone_additional",
			},
		},
		{
			Kind:       id.KindDependent,
			ActionKey:  "employee_family.changed",
			Label:      "Family/dependent change",
			Required:   []string{"first_name", "last_name"},
			Allowed:    []string{"first_name", "last_name", "id_number", "birth_date", "gender"},
			Prehistory: true,
			Rules: map[string][]validation.Rule{
				"gender": {validation.In("M", "F", "Other")},
			},
		},
		{
			Kind:      id.KindRoleHistory,
			ActionKey: "employee_role.changed",
			Label:     "Role and assignment change",
			Required:  []string{"job_title"},
			Allowed:   []string{"org_unit_id", "job_title", "job_grade_id", "rank", "scope_percentage"},
			Rules: map[string][]validation.Rule{
				"scope_percentage": {validation.Min(0.0), validation.Max(100.0)},
			},
		},
		{
			Kind:       id.KindAsset,
			ActionKey:  "employee_asset.changed",
			Label:      "Assigned asset change",
			Required:   []string{"type"},
			Allowed:    []string{"type", "description", "status", "serial_number", "issued_date", "return_date"},
			Prehistory: true,
		},
		{
			Kind:      id.KindJobGrade,
			ActionKey: "employee_grade.changed",
			Label:     "Job grade change",
			Required:  []string{"grade_code"},
			Allowed:   []string{"grade_code", "grade_name", "salary_band"},
		},
		{
			Kind:      id.KindJobTitle,
			ActionKey: "employee_title.changed",
			Label:     "Job title change",
			Required:  []string{"title_code"},
			Allowed:   []string{"title_code", "title_name"},
		},
		{
			Kind:      id.KindPosition,
			ActionKey: "employee_position.changed",
			Label:     "Position change",
			Required:  []string{"position_code"},
			Allowed:   []string{"position_code", "position_name", "org_unit_id"},
		},
	}

	catalog := &Catalog{
		byAction: make(map[string]*Descriptor, len(descriptors)),
		byKind:   make(map[id.EntityKind]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		catalog.byAction[d.ActionKey] = d
		catalog.byKind[d.Kind] = d
	}
	return catalog
}

// ByAction resolves an action key to its descriptor.
func (c *Catalog) ByAction(actionKey string) (*Descriptor, error) {
	d, ok := c.byAction[actionKey]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownEntityKind, "unsupported action_key: "+actionKey)
	}
	return d, nil
}

// ByKind resolves an entity kind to its descriptor.
func (c *Catalog) ByKind(kind id.EntityKind) (*Descriptor, error) {
	d, ok := c.byKind[kind]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownEntityKind, "unknown entity kind: "+kind.String())
	}
	return d, nil
}

// Descriptors returns all kinds ordered by action key, for the catalog
// endpoint consumed by forms.
func (c *Catalog) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(c.byAction))
	for _, d := range c.byAction {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionKey < out[j].ActionKey })
	return out
}

// ValidatePayload enforces the descriptor's schema over a command payload.
func (d *Descriptor) ValidatePayload(payload models.Payload) error {
	allowed := make(map[string]bool, len(d.Allowed))
	for _, field := range d.Allowed {
		allowed[field] = true
	}
	for field := range payload {
		if !allowed[field] {
			return dErrors.New(dErrors.CodePayloadValidation,
				fmt.Sprintf("field %q is not allowed for kind %s", field, d.Kind))
		}
	}
	for _, field := range d.Required {
		if err := validation.Validate(payload[field], validation.Required); err != nil {
			return dErrors.New(dErrors.CodePayloadValidation,
				fmt.Sprintf("field %q is required for kind %s", field, d.Kind))
		}
	}
	for field, rules := range d.Rules {
		value, ok := payload[field]
		if !ok {
			continue
		}
		if err := validation.Validate(value, rules...); err != nil {
			return dErrors.New(dErrors.CodePayloadValidation,
				fmt.Sprintf("field %q: %s", field, err.Error()))
		}
	}
	return nil
}
