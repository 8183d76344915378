package models

import "fmt"

// Category is the coarse classification of a host.
type Category int

const (
	CategoryPhysical Category = iota
	CategoryAmbiguous
	CategoryVirtual
)

func (c Category) String() string {
	switch c {
	case CategoryPhysical:
		return "physical"
	case CategoryAmbiguous:
		return "ambiguous"
	case CategoryVirtual:
		return "virtual"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a category name.
func ParseCategory(name string) (Category, error) {
	switch name {
	case "physical":
		return CategoryPhysical, nil
	case "ambiguous":
		return CategoryAmbiguous, nil
	case "virtual":
		return CategoryVirtual, nil
	default:
		return 0, fmt.Errorf("unknown category %q", name)
	}
}

// Indicator is one classifier rule evaluated against a fingerprint.
type Indicator struct {
	Name      string  `json:"name" cbor:"1,keyasint"`
	Value     float64 `json:"value" cbor:"2,keyasint"`
	Threshold float64 `json:"threshold" cbor:"3,keyasint"`
	Weight    float64 `json:"weight" cbor:"4,keyasint"`
	Triggered bool    `json:"triggered" cbor:"5,keyasint"`
	Detail    string  `json:"detail,omitempty" cbor:"6,keyasint,omitempty"`
}

// Verdict is the classifier output.
type Verdict struct {
	Confidence float64     `json:"confidence" cbor:"1,keyasint"`
	Category   Category    `json:"category" cbor:"2,keyasint"`
	Indicators []Indicator `json:"indicators" cbor:"3,keyasint"`
}

// Triggered counts indicators that contributed weight.
func (v Verdict) Triggered() int {
	count := 0
	for _, ind := range v.Indicators {
		if ind.Triggered {
			count++
		}
	}
	return count
}
