package cv

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section names one of the five ordered lists of a Document.
type Section string

const (
	SectionExperience   Section = "experience"
	SectionEducation    Section = "education"
	SectionCertificates Section = "certificates"
	SectionHobbies      Section = "hobbies"
	SectionPortfolio    Section = "portfolio"
)

// Sections lists every section in document order.
var Sections = []Section{
	SectionExperience,
	SectionEducation,
	SectionCertificates,
	SectionHobbies,
	SectionPortfolio,
}

// ParseSection maps a (case-insensitive) section name to a Section.
func ParseSection(s string) (Section, error) {
	want := Section(strings.ToLower(strings.TrimSpace(s)))
	for _, sec := range Sections {
		if sec == want {
			return sec, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// Patch is a partial update keyed by JSON field name. Unknown keys and "id" are ignored.
type Patch map[string]any

func (w WorkExperience) itemID() string { return w.ID }
func (e Education) itemID() string      { return e.ID }
func (c Certificate) itemID() string    { return c.ID }
func (h Hobby) itemID() string          { return h.ID }
func (p PortfolioItem) itemID() string  { return p.ID }

type listItem interface {
	itemID() string
}

// UpdatePersonal replaces the personal fields named in patch.
// It reports false when the patch does not fit the field types.
func (d *Document) UpdatePersonal(patch Patch) bool {
	return applyPatch(&d.Personal, patch)
}

// SetPersonalField replaces a single personal text field by its JSON name.
func (d *Document) SetPersonalField(field, value string) bool {
	return d.UpdatePersonal(Patch{field: value})
}

// Add appends a new item with a fresh id to section and returns that id.
// defaults may be nil. An unknown section is a no-op and returns "".
func (d *Document) Add(section Section, defaults Patch) string {
	id := NewID()
	switch section {
	case SectionExperience:
		d.Experience = append(d.Experience, newItem(WorkExperience{ID: id}, defaults))
	case SectionEducation:
		d.Education = append(d.Education, newItem(Education{ID: id}, defaults))
	case SectionCertificates:
		d.Certificates = append(d.Certificates, newItem(Certificate{ID: id}, defaults))
	case SectionHobbies:
		d.Hobbies = append(d.Hobbies, newItem(Hobby{ID: id}, defaults))
	case SectionPortfolio:
		d.Portfolio = append(d.Portfolio, newItem(PortfolioItem{ID: id}, defaults))
	default:
		return ""
	}
	return id
}

// Remove deletes the item with id from section. It reports whether anything was removed;
// an id that is not present leaves the list untouched.
func (d *Document) Remove(section Section, id string) bool {
	var removed bool
	switch section {
	case SectionExperience:
		d.Experience, removed = removeByID(d.Experience, id)
	case SectionEducation:
		d.Education, removed = removeByID(d.Education, id)
	case SectionCertificates:
		d.Certificates, removed = removeByID(d.Certificates, id)
	case SectionHobbies:
		d.Hobbies, removed = removeByID(d.Hobbies, id)
	case SectionPortfolio:
		d.Portfolio, removed = removeByID(d.Portfolio, id)
	}
	return removed
}

// Update merges patch into the item with id. Missing ids are a no-op.
func (d *Document) Update(section Section, id string, patch Patch) bool {
	switch section {
	case SectionExperience:
		return updateByID(d.Experience, id, patch)
	case SectionEducation:
		return updateByID(d.Education, id, patch)
	case SectionCertificates:
		return updateByID(d.Certificates, id, patch)
	case SectionHobbies:
		return updateByID(d.Hobbies, id, patch)
	case SectionPortfolio:
		return updateByID(d.Portfolio, id, patch)
	}
	return false
}

func newItem[T listItem](item T, defaults Patch) T {
	if len(defaults) > 0 {
		applyPatch(&item, defaults)
	}
	return item
}

func removeByID[T listItem](list []T, id string) ([]T, bool) {
	for i, item := range list {
		if item.itemID() == id {
			out := make([]T, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}

func updateByID[T listItem](list []T, id string, patch Patch) bool {
	for i := range list {
		if list[i].itemID() == id {
			return applyPatch(&list[i], patch)
		}
	}
	return false
}

// applyPatch 通过 JSON 往返合并字段；类型不匹配时保持原值不变。
func applyPatch[T any](target *T, patch Patch) bool {
	raw, err := json.Marshal(target)
	if err != nil {
		return false
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	changed := false
	for key, value := range patch {
		if key == "id" {
			continue
		}
		if _, ok := fields[key]; !ok {
			continue
		}
		fields[key] = value
		changed = true
	}
	if !changed {
		return false
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return false
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return false
	}
	*target = out
	return true
}

// Has reports whether section holds an item with id.
func (d Document) Has(section Section, id string) bool {
	switch section {
	case SectionExperience:
		return indexByID(d.Experience, id) >= 0
	case SectionEducation:
		return indexByID(d.Education, id) >= 0
	case SectionCertificates:
		return indexByID(d.Certificates, id) >= 0
	case SectionHobbies:
		return indexByID(d.Hobbies, id) >= 0
	case SectionPortfolio:
		return indexByID(d.Portfolio, id) >= 0
	}
	return false
}

func indexByID[T listItem](list []T, id string) int {
	for i := range list {
		if list[i].itemID() == id {
			return i
		}
	}
	return -1
}
