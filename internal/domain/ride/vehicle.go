package ride

// VehicleInfo describes the driver's car as shown on ride cards.
type VehicleInfo struct {
	Make  string
	Model string
	Color string
	AC    bool
}

// Preferences are the ride-level comfort flags a driver sets at creation.
type Preferences struct {
	SmokingAllowed bool
	MusicAllowed   bool
	PetsAllowed    bool
}
