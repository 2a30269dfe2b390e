// Package locator holds the ordered locator variants for every UI lookup site
// and a resolver that returns the first variant that matches.
//
// The target UI changes markup without notice. Each site therefore lists
// several ways of addressing the same logical element, newest first, and the
// catalog can be replaced at runtime from a YAML file.
package locator

import (
	"fmt"

	"github.com/djlord-it/easy-announce/internal/browser"
)

// Locator is one named way of addressing a UI element.
type Locator struct {
	Name string `yaml:"name"`
	CSS  string `yaml:"css"`
	Text string `yaml:"text,omitempty"`
}

func (l Locator) Query() browser.Query {
	return browser.Query{CSS: l.CSS, Text: l.Text}
}

func (l Locator) String() string {
	return l.Name + "=" + l.Query().String()
}

// Set is the ordered list of variants for one lookup site.
type Set []Locator

// Site names, used in logs and metrics labels.
const (
	SiteAuth            = "auth_indicators"
	SiteManageGroup     = "manage_group"
	SiteEventCards      = "event_cards"
	SiteEmptyListing    = "empty_listing"
	SiteCardLink        = "card_link"
	SiteCardDate        = "card_date"
	SiteBanner          = "announce_banner"
	SiteAnnounceControl = "announce_control"
	SiteConfirm         = "confirm"
	SiteLoginEmail      = "login_email"
	SiteLoginPassword   = "login_password"
	SiteLoginSubmit     = "login_submit"
)

// Catalog is the full set of lookup sites.
type Catalog struct {
	AuthIndicators  Set      `yaml:"auth_indicators"`
	LoginURLMarkers []string `yaml:"login_url_markers"`
	ManageGroup     Set      `yaml:"manage_group"`
	EventCards      Set      `yaml:"event_cards"`
	EmptyListing    Set      `yaml:"empty_listing"`
	CardLink        Set      `yaml:"card_link"`
	CardDate        Set      `yaml:"card_date"`
	Banner          Set      `yaml:"announce_banner"`
	AnnounceControl Set      `yaml:"announce_control"`
	Confirm         Set      `yaml:"confirm"`
	LoginEmail      Set      `yaml:"login_email"`
	LoginPassword   Set      `yaml:"login_password"`
	LoginSubmit     Set      `yaml:"login_submit"`
}

func (c Catalog) sites() map[string]Set {
	return map[string]Set{
		SiteAuth:            c.AuthIndicators,
		SiteManageGroup:     c.ManageGroup,
		SiteEventCards:      c.EventCards,
		SiteEmptyListing:    c.EmptyListing,
		SiteCardLink:        c.CardLink,
		SiteCardDate:        c.CardDate,
		SiteBanner:          c.Banner,
		SiteAnnounceControl: c.AnnounceControl,
		SiteConfirm:         c.Confirm,
		SiteLoginEmail:      c.LoginEmail,
		SiteLoginPassword:   c.LoginPassword,
		SiteLoginSubmit:     c.LoginSubmit,
	}
}

// Validate checks that every site has at least one variant and every variant
// is addressable.
func (c Catalog) Validate() error {
	for site, set := range c.sites() {
		if len(set) == 0 {
			return fmt.Errorf("locator site %s: no variants", site)
		}
		for i, l := range set {
			if l.CSS == "" {
				return fmt.Errorf("locator site %s: variant %d (%q) has no css", site, i, l.Name)
			}
			if l.Name == "" {
				return fmt.Errorf("locator site %s: variant %d has no name", site, i)
			}
		}
	}
	if len(c.LoginURLMarkers) == 0 {
		return fmt.Errorf("login_url_markers: no markers")
	}
	return nil
}
