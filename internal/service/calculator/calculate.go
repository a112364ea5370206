package ridecalc

import (
	"math"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

const (
	earthRadiusKm = 6371 // радиус Земли в км

	// средняя скорость в городе по классу
	speedCarKmh  = 40
	speedMotoKmh = 45
	speedAutoKmh = 30
)

type tariff struct {
	base, perKm, perMin float64
}

var tariffs = map[types.VehicleClass]tariff{
	types.ClassCar:  {base: 50, perKm: 15, perMin: 3},
	types.ClassMoto: {base: 20, perKm: 8, perMin: 1.5},
	types.ClassAuto: {base: 30, perKm: 10, perMin: 2},
}

// Estimate is the priced trip shown to the rider at creation.
type Estimate struct {
	DistanceKm  float64
	DurationMin int
	Fare        float64
}

type Calculator struct{}

func New() *Calculator {
	return &Calculator{}
}

// Estimate prices a trip between two resolved points.
func (c *Calculator) Estimate(pickup, destination models.Location, class types.VehicleClass) Estimate {
	dist := Distance(pickup, destination)
	dur := c.Duration(dist, class)
	return Estimate{
		DistanceKm:  round2(dist),
		DurationMin: dur,
		Fare:        c.Fare(class, dist, dur),
	}
}

// Distance вычисляет расстояние между двумя координатами по формуле гаверсинусов, в километрах
func Distance(p1, p2 models.Location) float64 {
	lat1Rad := p1.Latitude * math.Pi / 180
	lon1Rad := p1.Longitude * math.Pi / 180
	lat2Rad := p2.Latitude * math.Pi / 180
	lon2Rad := p2.Longitude * math.Pi / 180

	diffLat := lat2Rad - lat1Rad
	diffLon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(diffLon/2), 2)
	angle := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * angle
}

// Duration примерное время в минутах, округленное вверх
func (c *Calculator) Duration(distanceKm float64, class types.VehicleClass) int {
	if distanceKm <= 0 {
		return 0
	}

	speed := float64(speedCarKmh)
	switch class {
	case types.ClassMoto:
		speed = speedMotoKmh
	case types.ClassAuto:
		speed = speedAutoKmh
	}

	return int(math.Ceil(distanceKm / speed * 60))
}

// Fare: базовая ставка + стоимость за км + стоимость за минуты. Неизвестный класс считается как car.
func (c *Calculator) Fare(class types.VehicleClass, distanceKm float64, durationMin int) float64 {
	t, ok := tariffs[class]
	if !ok {
		t = tariffs[types.ClassCar]
	}
	return round2(t.base + distanceKm*t.perKm + float64(durationMin)*t.perMin)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
