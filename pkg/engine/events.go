package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/Macmachi/kasland/pkg/db"
)

const eventDuration = 24 * time.Hour

type eventSpec struct {
	Type             string
	Description      string
	Weight           float64
	EnergyMultiplier float64
	ZkaspaMultiplier float64
}

var eventCatalog = []eventSpec{
	{
		Type:             "solar_flare",
		Description:      "A solar flare has caused a general blackout! Energy production is interrupted for 24 hours.",
		Weight:           0.05,
		EnergyMultiplier: 0.0,
		ZkaspaMultiplier: 1,
	},
	{
		Type:             "maintenance",
		Description:      "Electrical grid maintenance in progress. Energy production is reduced by 75% for 24 hours.",
		Weight:           0.1,
		EnergyMultiplier: 0.25,
		ZkaspaMultiplier: 1,
	},
	{
		Type:             "energy_surge",
		Description:      "Power surge! Some lines are damaged. Energy production is reduced by 50% for 24 hours.",
		Weight:           0.1,
		EnergyMultiplier: 0.5,
		ZkaspaMultiplier: 1,
	},
	{
		Type:             "windy_weather",
		Description:      "Strong winds boost wind turbine production! Energy production is increased by 25% for 24 hours.",
		Weight:           0.1,
		EnergyMultiplier: 1.25,
		ZkaspaMultiplier: 1,
	},
	{
		Type:             "power_failure",
		Description:      "A major power outage! Energy production drops by 80% for 24 hours.",
		Weight:           0.1,
		EnergyMultiplier: 0.2,
		ZkaspaMultiplier: 1,
	},
	{
		Type:             "natural_disaster",
		Description:      "A natural disaster strikes! Energy and zkaspa production is reduced by 75% for 24 hours.",
		Weight:           0.05,
		EnergyMultiplier: 0.25,
		ZkaspaMultiplier: 0.25,
	},
	{
		Type:             "mining_difficulty_spike",
		Description:      "Sudden increase in mining difficulty! Zkaspa production decreases by 60% for 24 hours.",
		Weight:           0.08,
		EnergyMultiplier: 1,
		ZkaspaMultiplier: 0.4,
	},
	{
		Type:             "technical_glitch",
		Description:      "A critical bug in mining software reduces zkaspa production by 50% for 24 hours.",
		Weight:           0.08,
		EnergyMultiplier: 1,
		ZkaspaMultiplier: 0.5,
	},
	{
		Type:             "economic_crisis",
		Description:      "A severe economic crisis hits the crypto market! Zkaspa production falls by 70% for 24 hours.",
		Weight:           0.05,
		EnergyMultiplier: 1,
		ZkaspaMultiplier: 0.3,
	},
	{
		Type:             "mining_hardware_shortage",
		Description:      "Global shortage of mining hardware components! Zkaspa production decreases by 45% for 24 hours.",
		Weight:           0.06,
		EnergyMultiplier: 1,
		ZkaspaMultiplier: 0.55,
	},
}

// maybeGenerateEvent rolls the daily event dice. At most one event exists at
// a time: nothing is generated while an event is running or scheduled. The
// draw is weighted over the catalog's relative weights.
func (e *Engine) maybeGenerateEvent(tx *db.Tx, now int64) error {
	busy, err := tx.HasEventEndingAfter(now)
	if err != nil {
		return err
	}
	if busy {
		return nil
	}

	if e.randFloat() >= e.cfg.EventChance {
		e.logger.Info("no new event generated today")
		return nil
	}

	var totalWeight float64
	for _, spec := range eventCatalog {
		totalWeight += spec.Weight
	}

	r := e.randFloat() * totalWeight
	chosen := eventCatalog[len(eventCatalog)-1]
	for _, spec := range eventCatalog {
		r -= spec.Weight
		if r < 0 {
			chosen = spec
			break
		}
	}

	err = tx.InsertEvent(db.Event{
		EventType:        chosen.Type,
		StartTime:        now,
		EndTime:          now + int64(eventDuration.Seconds()),
		Description:      chosen.Description,
		EnergyMultiplier: chosen.EnergyMultiplier,
		ZkaspaMultiplier: chosen.ZkaspaMultiplier,
	})
	if err != nil {
		return err
	}
	e.logger.Info("new event generated", zap.String("event_type", chosen.Type))
	return nil
}
