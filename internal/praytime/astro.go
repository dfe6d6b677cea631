package praytime

import "math"

// degree-based trigonometry

func dsin(d float64) float64 { return math.Sin(d * math.Pi / 180) }
func dcos(d float64) float64 { return math.Cos(d * math.Pi / 180) }
func dtan(d float64) float64 { return math.Tan(d * math.Pi / 180) }
func darcsin(x float64) float64 { return math.Asin(x) * 180 / math.Pi }
func darccos(x float64) float64 { return math.Acos(x) * 180 / math.Pi }
func darccot(x float64) float64 { return math.Atan(1/x) * 180 / math.Pi }

func darctan2(y, x float64) float64 { return math.Atan2(y, x) * 180 / math.Pi }

func fix(a, b float64) float64 {
	a = a - b*math.Floor(a/b)
	if a < 0 {
		return a + b
	}
	return a
}

func fixAngle(a float64) float64 { return fix(a, 360) }
func fixHour(a float64) float64 { return fix(a, 24) }

// timeDiff is the forward distance in hours from a to b on a 24h clock.
func timeDiff(a, b float64) float64 { return fixHour(b - a) }

// julianDate returns the Julian date at 0h UT of the given civil date.
func julianDate(year int, month int, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + float64(day) + b - 1524.5
}

// sunPosition returns the solar declination in degrees and the equation of
// time in hours for the Julian date jd.
func sunPosition(jd float64) (declination, equation float64) {
	d := jd - 2451545.0
	g := fixAngle(357.529 + 0.98560028*d)
	q := fixAngle(280.459 + 0.98564736*d)
	l := fixAngle(q + 1.915*dsin(g) + 0.020*dsin(2*g))
	e := 23.439 - 0.00000036*d

	ra := darctan2(dcos(e)*dsin(l), dcos(l)) / 15
	equation = q/15 - fixHour(ra)
	declination = darcsin(dsin(e) * dsin(l))
	return declination, equation
}
