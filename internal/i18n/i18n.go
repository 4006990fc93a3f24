// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n holds the translated texts of participant emails and
// validation messages.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var bundle *i18n.Bundle

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads every embedded translation file. Lookups before Init return
// the message id.
func Init() error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(translationFS, "translations/active.*.toml")
	if err != nil {
		return err
	}
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	bundle = b
	return nil
}

// Languages returns the loaded languages, English first.
func Languages() []language.Tag {
	if bundle == nil {
		return []language.Tag{language.English}
	}
	return bundle.LanguageTags()
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	locale := lang.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	if bundle == nil {
		return ctx
	}
	return context.WithValue(ctx, localizerContextKey{}, i18n.NewLocalizer(bundle, locale))
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "en"
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return TData(ctx, messageID, nil)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	localizer := getLocalizer(ctx)
	if localizer == nil {
		return messageID
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}

// Mail renders the subject and body of the named email. The messages are
// looked up as <name>_subject and <name>_body.
func Mail(ctx context.Context, name string, data map[string]any) (subject, body string) {
	return TData(ctx, name+"_subject", data), TData(ctx, name+"_body", data)
}

// MatchLanguage picks the best loaded language for a tag or an
// Accept-Language value.
func MatchLanguage(acceptLanguage string) language.Tag {
	matcher := language.NewMatcher(Languages())
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

// ForLanguage returns a context carrying the locale matched from lang.
func ForLanguage(ctx context.Context, lang string) context.Context {
	return WithLocale(ctx, MatchLanguage(lang))
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	if bundle == nil {
		return nil
	}
	return i18n.NewLocalizer(bundle, "en")
}
