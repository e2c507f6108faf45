// Package catalog holds the canonical building tier and variant types and
// the tier resolver. All economy logic consumes these shapes; conversion
// from config or store rows happens at those boundaries, nowhere else.
package catalog

import (
	"fmt"
	"sort"

	"github.com/Macmachi/kasland/pkg/config"
)

// Variant is a cosmetic sub-type of a tier with a draw probability.
type Variant struct {
	Name        string
	Probability float64
}

// Tier is one building type: the contribution threshold and the economic
// properties a parcel receives at that threshold.
type Tier struct {
	Name              string
	MinAmount         float64
	MaxAmount         float64
	FeeAmount         float64
	FeeFrequencyDays  int
	Category          string
	EnergyProduction  float64
	EnergyConsumption float64
	ZkaspaProduction  float64
	MaxCount          int // 0 = unlimited
	Variants          []Variant
}

// VariantProbability returns the draw probability of the named variant.
func (t Tier) VariantProbability(name string) (float64, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v.Probability, true
		}
	}
	return 0, false
}

// HasVariant reports whether the tier defines the named variant.
func (t Tier) HasVariant(name string) bool {
	_, ok := t.VariantProbability(name)
	return ok
}

// Catalog is the ordered, immutable tier table. Tiers are kept in
// descending threshold order, which is the resolver's scan order.
type Catalog struct {
	tiers  []Tier
	byName map[string]int
}

// New builds a catalog from tiers. Thresholds must be unique; the tie rule
// in the resolver depends on strictly descending scan order.
func New(tiers []Tier) (*Catalog, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinAmount > sorted[j].MinAmount })

	byName := make(map[string]int, len(sorted))
	for i, t := range sorted {
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tier name %q", t.Name)
		}
		if i > 0 && sorted[i-1].MinAmount == t.MinAmount {
			return nil, fmt.Errorf("tiers %q and %q share threshold %v", sorted[i-1].Name, t.Name, t.MinAmount)
		}
		byName[t.Name] = i
	}
	return &Catalog{tiers: sorted, byName: byName}, nil
}

// FromConfig converts the config catalog into the canonical shape.
func FromConfig(specs []config.BuildingSpec) (*Catalog, error) {
	tiers := make([]Tier, 0, len(specs))
	for _, b := range specs {
		variants := make([]Variant, 0, len(b.Variants))
		for _, v := range b.Variants {
			variants = append(variants, Variant{Name: v.Name, Probability: v.Probability})
		}
		tiers = append(tiers, Tier{
			Name:              b.Name,
			MinAmount:         b.MinAmount,
			MaxAmount:         b.MaxAmount,
			FeeAmount:         b.FeeAmount,
			FeeFrequencyDays:  b.FeeFrequencyDays,
			Category:          b.Category,
			EnergyProduction:  b.EnergyProduction,
			EnergyConsumption: b.EnergyConsumption,
			ZkaspaProduction:  b.ZkaspaProduction,
			MaxCount:          b.MaxCount,
			Variants:          variants,
		})
	}
	return New(tiers)
}

// Tiers returns the tiers in descending threshold order.
func (c *Catalog) Tiers() []Tier {
	return c.tiers
}

// Tier looks a tier up by name.
func (c *Catalog) Tier(name string) (Tier, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[i], true
}

// Rarity derives the display label for a variant from its draw probability.
func Rarity(probability float64) string {
	switch {
	case probability <= 0.001:
		return "Mythic"
	case probability <= 0.01:
		return "Legendary"
	case probability <= 0.05:
		return "Epic"
	case probability <= 0.1:
		return "Rare"
	case probability <= 0.2:
		return "Uncommon"
	case probability <= 0.4:
		return "Common"
	default:
		return "Basic"
	}
}
