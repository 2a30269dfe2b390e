package locator

// Default returns the built-in catalog. Variants are ordered newest markup
// first; historical shapes stay at the tail so older page builds still work.
func Default() Catalog {
	return Catalog{
		AuthIndicators: Set{
			{Name: "profile-menu-testid", CSS: `[data-testid="header-profile-menu"]`},
			{Name: "profile-button", CSS: `button[data-event-label="header-profile-menu"]`},
			{Name: "profile-image", CSS: `img[data-testid="header-profile-image"]`},
			{Name: "aria-profile", CSS: `[aria-label="Profile"]`},
			{Name: "aria-profile-menu", CSS: `[aria-label="Open profile menu"]`},
		},
		LoginURLMarkers: []string{"/login", "signin", "sign-in", "/register"},
		ManageGroup: Set{
			{Name: "manage-group-testid", CSS: `[data-testid="manage-group-button"]`},
			{Name: "manage-group-dropdown", CSS: `[data-event-label="manage-group-dropdown"]`},
			{Name: "manage-group-button-text", CSS: `button`, Text: "Manage group"},
			{Name: "manage-group-link-text", CSS: `a`, Text: "Manage group"},
		},
		EventCards: Set{
			{Name: "event-card-id", CSS: `a[id^="event-card-e-"]`},
			{Name: "event-card-testid", CSS: `[data-testid="categoryResults-eventCard"]`},
			{Name: "event-card-label", CSS: `a[data-event-label="Event card"]`},
		},
		EmptyListing: Set{
			{Name: "empty-state-testid", CSS: `[data-testid="empty-state"]`},
			{Name: "no-upcoming-text", CSS: `p`, Text: "no upcoming events"},
		},
		CardLink: Set{
			{Name: "event-link", CSS: `a[href*="/events/"]`},
		},
		CardDate: Set{
			{Name: "time", CSS: `time`},
			{Name: "event-card-date", CSS: `[data-testid="event-card-date"]`},
		},
		Banner: Set{
			{Name: "announce-banner-testid", CSS: `[data-testid="event-announce-banner"]`},
			{Name: "announce-banner-short", CSS: `[data-testid="announce-banner"]`},
			{Name: "announce-alert-text", CSS: `[role="alert"]`, Text: "announce"},
		},
		AnnounceControl: Set{
			{Name: "event-label", CSS: `button[data-event-label="announce"]`},
			{Name: "event-label-legacy", CSS: `button[date-event-label="announce"]`},
			{Name: "announce-testid", CSS: `[data-testid="announce-button"]`},
			{Name: "announce-button-text", CSS: `button`, Text: "Announce"},
			{Name: "announce-link-text", CSS: `a`, Text: "Announce"},
		},
		Confirm: Set{
			{Name: "confirm-testid", CSS: `[data-testid="confirm-button"]`},
			{Name: "dialog-announce-text", CSS: `[role="dialog"] button`, Text: "Announce"},
			{Name: "dialog-confirm-text", CSS: `[role="dialog"] button`, Text: "Confirm"},
		},
		LoginEmail: Set{
			{Name: "email-id", CSS: `input#email`},
			{Name: "email-name", CSS: `input[name="email"]`},
			{Name: "email-type", CSS: `input[type="email"]`},
		},
		LoginPassword: Set{
			{Name: "password-id", CSS: `input#current-password`},
			{Name: "password-name", CSS: `input[name="password"]`},
			{Name: "password-type", CSS: `input[type="password"]`},
		},
		LoginSubmit: Set{
			{Name: "submit-type", CSS: `button[type="submit"]`},
			{Name: "login-text", CSS: `button`, Text: "Log in"},
		},
	}
}
