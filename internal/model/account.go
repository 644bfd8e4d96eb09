package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	Manufacturer = "Free Mobile"
	DeviceModel  = "SMS Gateway"
	SWVersion    = "1.0"

	servicePrefix = "freesms_"
)

// Credentials authenticate against the SMS endpoint.
type Credentials struct {
	Username    string
	AccessToken string
}

// Account is one configured set of credentials. It is never modified
// after creation; reconfiguring means deleting and creating again.
type Account struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	AccessToken string    `json:"-"`
	Name        string    `json:"name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a Account) Credentials() Credentials {
	return Credentials{Username: a.Username, AccessToken: a.AccessToken}
}

func (a Account) Title() string {
	return fmt.Sprintf("Free Mobile SMS (%s)", a.Username)
}

// ServiceName is the name the notify service is registered under.
func (a Account) ServiceName() string {
	if a.Name != "" {
		return a.Name
	}
	return servicePrefix + strings.ToLower(strings.ReplaceAll(a.Username, ".", "_"))
}

// Data is the stored record of the account, optional keys omitted.
func (a Account) Data() map[string]string {
	data := map[string]string{
		"username":     a.Username,
		"access_token": a.AccessToken,
	}
	if a.Name != "" {
		data["name"] = a.Name
	}
	if a.PhoneNumber != "" {
		data["phone_number"] = a.PhoneNumber
	}
	return data
}

func (a Account) Device() Device {
	return Device{
		Identifier:   servicePrefix + a.Username,
		Name:         a.Title(),
		Manufacturer: Manufacturer,
		Model:        DeviceModel,
		SWVersion:    SWVersion,
	}
}

type Device struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SWVersion    string `json:"sw_version"`
}
