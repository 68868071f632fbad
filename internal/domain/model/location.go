package model

type Coordinates struct {
	Lat float64
	Lon float64
}

type Place struct {
	CityID string
	City   string
}
