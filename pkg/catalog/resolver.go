package catalog

import "math/rand"

// FallbackVariant is assigned when a tier defines no variants.
const FallbackVariant = "A"

// CapCounts reports how many parcels currently hold the named tier. The
// resolver consults it only for tiers that carry a population cap.
type CapCounts func(tier string) (int, error)

// Resolution is the resolver's pick for a contribution amount.
type Resolution struct {
	Tier    Tier
	Variant string
}

// Resolve picks the applicable tier and variant for a cumulative
// contribution amount. Tiers are scanned in descending threshold order; the
// first tier whose threshold is covered and whose population cap is not
// exhausted wins. A non-empty currentVariant is retained when the chosen
// tier still defines it, so upgrades preserve cosmetics. Returns nil when
// no tier qualifies.
func (c *Catalog) Resolve(amount float64, currentVariant string, counts CapCounts) (*Resolution, error) {
	for _, tier := range c.tiers {
		if amount < tier.MinAmount {
			continue
		}
		if tier.MaxCount > 0 && counts != nil {
			n, err := counts(tier.Name)
			if err != nil {
				return nil, err
			}
			if n >= tier.MaxCount {
				continue
			}
		}
		return &Resolution{Tier: tier, Variant: pickVariant(tier, currentVariant)}, nil
	}
	return nil, nil
}

// PickVariant draws a variant for the tier, retaining current when the tier
// still defines it.
func PickVariant(tier Tier, current string) string {
	return pickVariant(tier, current)
}

func pickVariant(tier Tier, current string) string {
	if len(tier.Variants) == 0 {
		return FallbackVariant
	}
	if current != "" && tier.HasVariant(current) {
		return current
	}

	var total float64
	for _, v := range tier.Variants {
		total += v.Probability
	}
	if total <= 0 {
		return tier.Variants[0].Name
	}

	r := rand.Float64() * total
	for _, v := range tier.Variants {
		r -= v.Probability
		if r < 0 {
			return v.Name
		}
	}
	return tier.Variants[len(tier.Variants)-1].Name
}
