package district

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nregsmp/nregsreport/internal/model"
)

// Count is the number of districts in Madhya Pradesh covered by the dashboard.
const Count = 52

// ErrUnknownDistrict is wrapped by the validation error returned for names
// that are not in the registry.
var ErrUnknownDistrict = errors.New("unknown district")

// divisions maps each revenue division to its districts, using the
// uppercase names the dashboard reports as group_name.
var divisions = map[string][]string{
	"Bhopal":       {"BHOPAL", "RAISEN", "RAJGARH", "SEHORE", "VIDISHA"},
	"Chambal":      {"BHIND", "MORENA", "SHEOPUR"},
	"Gwalior":      {"ASHOKNAGAR", "DATIA", "GUNA", "GWALIOR", "SHIVPURI"},
	"Indore":       {"ALIRAJPUR", "BARWANI", "BURHANPUR", "DHAR", "INDORE", "JHABUA", "KHANDWA", "KHARGONE"},
	"Jabalpur":     {"BALAGHAT", "CHHINDWARA", "DINDORI", "JABALPUR", "KATNI", "MANDLA", "NARSINGHPUR", "SEONI"},
	"Narmadapuram": {"BETUL", "HARDA", "HOSHANGABAD"},
	"Rewa":         {"REWA", "SATNA", "SIDHI", "SINGRAULI"},
	"Sagar":        {"CHHATARPUR", "DAMOH", "NIWARI", "PANNA", "SAGAR", "TIKAMGARH"},
	"Shahdol":      {"ANUPPUR", "SHAHDOL", "UMARIA"},
	"Ujjain":       {"AGAR MALWA", "DEWAS", "MANDSAUR", "NEEMUCH", "RATLAM", "SHAJAPUR", "UJJAIN"},
}

// registry is built once from divisions and never modified.
var registry = buildRegistry()

func buildRegistry() map[string]model.District {
	r := make(map[string]model.District, Count)
	for division, names := range divisions {
		for _, name := range names {
			r[name] = model.District{
				Name:     name,
				Division: division,
				Slug:     slugify(name),
			}
		}
	}
	return r
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Lookup returns the district with exactly the given name.
// Names are matched case-sensitively against the uppercase registry names.
// Any other value yields a *model.ValidationError wrapping ErrUnknownDistrict.
func Lookup(name string) (model.District, error) {
	if d, ok := registry[name]; ok {
		return d, nil
	}

	cause := ErrUnknownDistrict
	if d, ok := registry[strings.ToUpper(strings.TrimSpace(name))]; ok {
		cause = fmt.Errorf("%w (did you mean %q?)", ErrUnknownDistrict, d.Name)
	}
	return model.District{}, &model.ValidationError{Field: "district", Value: name, Err: cause}
}

// All returns every district sorted by name.
func All() []model.District {
	all := make([]model.District, 0, len(registry))
	for _, d := range registry {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Names returns every district name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Divisions returns the revenue division names in sorted order.
func Divisions() []string {
	names := make([]string, 0, len(divisions))
	for name := range divisions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByDivision returns the districts of a division sorted by name.
// The division name is matched case-insensitively.
func ByDivision(division string) []model.District {
	var result []model.District
	for _, d := range All() {
		if strings.EqualFold(d.Division, division) {
			result = append(result, d)
		}
	}
	return result
}

// DisplayName returns the district name in title case, e.g. "Agar Malwa".
func DisplayName(d model.District) string {
	return cases.Title(language.English).String(strings.ToLower(d.Name))
}
