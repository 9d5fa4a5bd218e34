package stacking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPolicy_EmptyName_DefaultsToUrgentAll(t *testing.T) {
	// GIVEN the default policy
	p := NewPolicy("", 0)

	// THEN every track classifies Urgent
	tr := newFakeTrack("t")
	tr.energy = 0.0001
	assert.Equal(t, Urgent(), p.Classify(tr))
}

func TestNewPolicy_UnknownName_Panics(t *testing.T) {
	assert.Panics(t, func() { NewPolicy("no-such-policy", 0) })
}

func TestEnergyCutPolicy_KillsBelowCutoff(t *testing.T) {
	// GIVEN an energy-cut policy with cutoff 5.0
	p := NewPolicy("energy-cut", 5.0)

	// WHEN classifying tracks straddling the cutoff
	low := newFakeTrack("low")
	low.energy = 4.9
	high := newFakeTrack("high")
	high.energy = 5.0

	// THEN the sub-cutoff track is killed, the rest urgent
	assert.Equal(t, Killed(), p.Classify(low))
	assert.Equal(t, Urgent(), p.Classify(high))
}

func TestNeutronPostponePolicy_DefersOnlySecondaryNeutrons(t *testing.T) {
	p := NewPolicy("neutron-postpone", 0)

	secondaryNeutron := newFakeTrack("ns")
	secondaryNeutron.category = CategoryNeutron
	secondaryNeutron.parentID = 3

	primaryNeutron := newFakeTrack("np")
	primaryNeutron.category = CategoryNeutron

	gamma := newFakeTrack("g")
	gamma.category = CategoryGamma
	gamma.parentID = 3

	assert.Equal(t, Postponed(), p.Classify(secondaryNeutron))
	assert.Equal(t, Urgent(), p.Classify(primaryNeutron))
	assert.Equal(t, Urgent(), p.Classify(gamma))
}

func TestStagedEMPolicy_HoldsEMSecondariesInTierZero(t *testing.T) {
	p := NewPolicy("staged-em", 0)

	emSecondary := newFakeTrack("e")
	emSecondary.category = CategoryElectron
	emSecondary.parentID = 2

	emPrimary := newFakeTrack("ep")
	emPrimary.category = CategoryElectron

	neutron := newFakeTrack("n")
	neutron.category = CategoryNeutron
	neutron.parentID = 2

	assert.Equal(t, Waiting(0), p.Classify(emSecondary))
	assert.Equal(t, Urgent(), p.Classify(emPrimary))
	assert.Equal(t, Urgent(), p.Classify(neutron))
}

func TestClassification_String_NamesEachKind(t *testing.T) {
	assert.Equal(t, "urgent", Urgent().String())
	assert.Equal(t, "waiting(2)", Waiting(2).String())
	assert.Equal(t, "postpone", Postponed().String())
	assert.Equal(t, "kill", Killed().String())
	assert.Equal(t, "subbatch(7)", SubBatch(7).String())
}
