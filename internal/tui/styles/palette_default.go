package styles

// DefaultTheme matches the portfolio's dark look.
var DefaultTheme = Theme{
	Name:       "default",
	RoleColors: true,
	Tokens: ThemeTokens{
		Background: "#0A0A0A",
		Panel:      "#141414",
		Text:       "#EDEDED",
		TextMuted:  "#8A8A8A",
		Border:     "#2A2A2A",
		Accent:     "#D2FF00",
		Focus:      "#E4FF66",
		UserBubble: "#1F2A10",
		Warning:    "#D29922",
		Error:      "#F85149",
		Info:       "#61DAFB",
	},
}
