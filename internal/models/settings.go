package models

// Theme is the UI colour scheme. The ledger only stores it.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeAmoled Theme = "amoled"
	ThemeGray   Theme = "gray"
)

// Settings holds user preferences that affect how settlement messages are rendered.
type Settings struct {
	Theme    Theme  `json:"theme"`
	Currency string `json:"currency"`

	// ShowAppName appends the app attribution line to shared messages.
	ShowAppName   bool   `json:"showAppName"`
	CustomMessage string `json:"customMessage"`

	// UpiVpa is the user's UPI virtual payment address, e.g. "name@bank".
	UpiVpa           string `json:"upiVpa"`
	EnableUpiPayment bool   `json:"enableUpiPayment"`
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:       ThemeGray,
		Currency:    "₹",
		ShowAppName: true,
	}
}
