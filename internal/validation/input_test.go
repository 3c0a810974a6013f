package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"ivan.petrov@mail.ru",
		"dev+test@sub.example.org",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"two@@example.com",
		"user@nodot",
		"user name@example.com",
		"@example.com",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password123"))

	invalid := []string{
		"Sh0rt",
		"alllowercase1",
		"ALLUPPERCASE1",
		"NoDigitsHere",
	}
	for _, password := range invalid {
		assert.Error(t, ValidatePassword(password), password)
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("ivan_petrov"))
	assert.NoError(t, ValidateUsername("user42"))

	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("42user"))
	assert.Error(t, ValidateUsername("имя"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", MaxUsernameLength+1)))
}

func TestValidateServicePricing(t *testing.T) {
	assert.NoError(t, ValidateServicePricing(1, 1))
	assert.NoError(t, ValidateServicePricing(12, 100))

	assert.Error(t, ValidateServicePricing(0, 5))
	assert.Error(t, ValidateServicePricing(13, 5))
	assert.Error(t, ValidateServicePricing(2, 0))
	assert.Error(t, ValidateServicePricing(2, 101))
}

func TestValidateSkills(t *testing.T) {
	assert.NoError(t, ValidateSkills([]string{"гитара", "испанский"}))
	assert.NoError(t, ValidateSkills(nil))

	assert.Error(t, ValidateSkills([]string{"  "}))
	assert.Error(t, ValidateSkills([]string{strings.Repeat("ы", MaxSkillLength+1)}))

	many := make([]string, MaxSkillsCount+1)
	for i := range many {
		many[i] = "навык"
	}
	assert.Error(t, ValidateSkills(many))
}

func TestValidateRating(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		assert.NoError(t, ValidateRating(rating))
	}
	assert.Error(t, ValidateRating(0))
	assert.Error(t, ValidateRating(6))
}
