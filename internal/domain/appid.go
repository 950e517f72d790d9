package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// App Store URL shapes, most specific first; the first match wins.
var appStorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/app/[^/]+/id(\d+)`),
	regexp.MustCompile(`/app/id(\d+)`),
	regexp.MustCompile(`/id(\d+)`),
	regexp.MustCompile(`^(\d+)$`),
}

// ExtractAppID pulls the platform's app identifier out of a storefront URL.
// Play listings carry it in the "id" query parameter; App Store listings embed
// a numeric segment behind a literal "id" prefix.
func ExtractAppID(p Platform, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}
	switch p {
	case GooglePlay:
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: unparseable url: %s", ErrInvalidInput, raw)
		}
		if id := u.Query().Get("id"); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("%w: url has no id parameter: %s", ErrInvalidInput, raw)
	case AppStore:
		for _, re := range appStorePatterns {
			if m := re.FindStringSubmatch(raw); m != nil {
				return m[1], nil
			}
		}
		return "", fmt.Errorf("%w: no app id in url: %s", ErrInvalidInput, raw)
	default:
		return "", fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, p)
	}
}
