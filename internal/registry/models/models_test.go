package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "organlink/pkg/domain-errors"
)

func TestNormalizeOrgan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Organ
	}{
		{name: "canonical", input: "kidney", want: OrganKidney},
		{name: "plural", input: "kidneys", want: OrganKidney},
		{name: "mixed case plural", input: "Livers", want: OrganLiver},
		{name: "whitespace", input: "  heart ", want: OrganHeart},
		{name: "pancreas keeps trailing s", input: "pancreas", want: OrganPancreas},
		{name: "pancreas upper case", input: "PANCREAS", want: OrganPancreas},
		{name: "lung plural", input: "Lungs", want: OrganLung},
		{name: "intestine plural", input: "intestines", want: OrganIntestine},
		{name: "cornea", input: "cornea", want: OrganCornea},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeOrgan(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeOrgan_Rejects(t *testing.T) {
	for _, input := range []string{"", "   ", "spleen", "pancrea"} {
		_, err := NormalizeOrgan(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestParseBloodType(t *testing.T) {
	got, err := ParseBloodType(" ab+ ")
	require.NoError(t, err)
	assert.Equal(t, BloodABPos, got)

	_, err = ParseBloodType("C-")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseUrgency(t *testing.T) {
	got, err := ParseUrgency("Critical")
	require.NoError(t, err)
	assert.Equal(t, UrgencyCritical, got)

	_, err = ParseUrgency("extreme")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestDonorOffers(t *testing.T) {
	d := Donor{Organs: []Organ{OrganKidney, OrganPancreas}}
	assert.True(t, d.Offers(OrganPancreas))
	assert.False(t, d.Offers(OrganHeart))
}
