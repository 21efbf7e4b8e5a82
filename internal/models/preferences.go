package models

// Preferences holds the three free-text answers from the questions form.
// Fields may be empty; they only live for the duration of one request.
type Preferences struct {
	Favorite string `json:"favorite" form:"favorite" validate:"max=500,no_null_bytes"`
	Recency  string `json:"newOrClassic" form:"newOrClassic" validate:"max=500,no_null_bytes"` //nolint:tagliatelle // form field name
	Tone     string `json:"tone" form:"tone" validate:"max=500,no_null_bytes"`
}

// Query joins the three answers with single spaces, in form order. This is the text that gets embedded
// and quoted back to the recommender as the user's preferences.
func (p Preferences) Query() string {
	return p.Favorite + " " + p.Recency + " " + p.Tone
}

// IsZero reports whether all three answers are empty.
func (p Preferences) IsZero() bool {
	return p.Favorite == "" && p.Recency == "" && p.Tone == ""
}
