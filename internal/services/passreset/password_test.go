// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package passreset_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/sampletrack/internal/i18n"
	"codeberg.org/oliverandrich/sampletrack/internal/services/passreset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestPasswordValidator(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)
	v := passreset.DefaultPasswordValidator()

	tests := []struct {
		name     string
		password string
		codes    []string
	}{
		{"valid", "correct horse battery", nil},
		{"too short", "abc12", []string{"min_length"}},
		{"numeric", "1234567890", []string{"entirely_numeric"}},
		{"short and numeric", "1234", []string{"min_length", "entirely_numeric"}},
		{"contains email local part", "my-alice-pass", []string{"too_similar"}},
		{"contains kit id", "xx-tst_abcde-xx", []string{"too_similar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.password, "alice@example.com", "tst_abcde")
			if tt.codes == nil {
				assert.NoError(t, err)
				return
			}

			var verr *passreset.PasswordValidationError
			require.ErrorAs(t, err, &verr)
			codes := make([]string, len(verr.Errors))
			for i, e := range verr.Errors {
				codes[i] = e.Code
			}
			assert.Equal(t, tt.codes, codes)
			assert.Len(t, verr.Messages(), len(tt.codes))
		})
	}
}

func TestPasswordValidator_LocalizedMessages(t *testing.T) {
	require.NoError(t, i18n.Init())
	v := passreset.DefaultPasswordValidator()

	en := v.Validate(i18n.WithLocale(context.Background(), language.English), "123")
	de := v.Validate(i18n.WithLocale(context.Background(), language.German), "123")

	require.Error(t, en)
	require.Error(t, de)
	assert.Contains(t, en.Error(), "at least 8 characters")
	assert.Contains(t, de.Error(), "mindestens 8 Zeichen")
}

func TestPasswordValidator_SimilarityDisabled(t *testing.T) {
	require.NoError(t, i18n.Init())
	v := &passreset.PasswordValidator{MinLength: 4}

	assert.NoError(t, v.Validate(context.Background(), "alice@example.com", "alice@example.com"))
}
