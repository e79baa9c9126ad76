package domain

// User is a player profile
type User struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// ComputerProfile is the profile stored for an automated seat
func ComputerProfile(identifier string) User {
	return User{Identifier: identifier, Name: "Computer " + identifier}
}
