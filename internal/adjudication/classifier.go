package adjudication

import (
	"sort"
	"strings"

	"github.com/openclaims/harrier/internal/domain"
)

// CopayClassifier decides whether a service code is copay-bearing and, if so,
// which copay class applies. Pluggable so a real procedure-code taxonomy can
// replace the default prefix table.
type CopayClassifier interface {
	// Classify returns the copay class for a service code.
	// The second return is false for codes that carry no copay.
	Classify(serviceCode string) (domain.ServiceClass, bool)
}

// PrefixClassifier classifies service codes by longest-prefix match against a
// configured table.
type PrefixClassifier struct {
	entries  []prefixEntry
	fallback *fallbackEntry
}

type prefixEntry struct {
	prefix string
	class  domain.ServiceClass
}

type fallbackEntry struct {
	prefix string
	class  domain.ServiceClass
}

// NewPrefixClassifier builds a classifier from a prefix-to-class table. When
// no table entry matches, codes starting with fallbackPrefix classify as
// fallbackClass; all other codes carry no copay.
func NewPrefixClassifier(table map[string]domain.ServiceClass, fallbackPrefix string, fallbackClass domain.ServiceClass) *PrefixClassifier {
	entries := make([]prefixEntry, 0, len(table))
	for prefix, class := range table {
		entries = append(entries, prefixEntry{prefix: prefix, class: class})
	}
	// Longest prefix wins; ties broken lexically for determinism.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].prefix) != len(entries[j].prefix) {
			return len(entries[i].prefix) > len(entries[j].prefix)
		}
		return entries[i].prefix < entries[j].prefix
	})

	c := &PrefixClassifier{entries: entries}
	if fallbackPrefix != "" {
		c.fallback = &fallbackEntry{prefix: fallbackPrefix, class: fallbackClass}
	}
	return c
}

// Classify returns the copay class for a service code.
func (c *PrefixClassifier) Classify(serviceCode string) (domain.ServiceClass, bool) {
	for _, e := range c.entries {
		if strings.HasPrefix(serviceCode, e.prefix) {
			return e.class, true
		}
	}
	if c.fallback != nil && strings.HasPrefix(serviceCode, c.fallback.prefix) {
		return c.fallback.class, true
	}
	return "", false
}

// DefaultClassifier returns the default copay taxonomy: evaluation-and-
// management codes (the "99" range) are copay-bearing, split into emergency,
// specialist, urgent care, and primary care by sub-prefix. Placeholder
// mapping, not a real procedure-code taxonomy.
func DefaultClassifier() *PrefixClassifier {
	return NewPrefixClassifier(map[string]domain.ServiceClass{
		"9928": domain.ServiceEmergencyRoom, // 99281-99285 emergency department
		"9924": domain.ServiceSpecialist,    // 99241-99245 consultations
		"9925": domain.ServiceSpecialist,    // 99251-99255 inpatient consultations
		"9923": domain.ServiceUrgentCare,
	}, "99", domain.ServicePrimaryCare)
}
