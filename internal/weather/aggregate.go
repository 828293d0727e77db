package weather

// HourlyForecast maps the first HourlyHorizon samples, in series order, to hourly rows.
func HourlyForecast(series RawForecastSeries, f Formatter) []HourlyEntry {
	n := len(series.List)
	if n > HourlyHorizon {
		n = HourlyHorizon
	}

	out := make([]HourlyEntry, 0, n)
	for _, s := range series.List[:n] {
		out = append(out, TransformHourlySample(s, f))
	}
	return out
}

// DailyForecast buckets samples by UTC calendar date, in first-seen order, and
// reduces each of the first MaxDailyEntries buckets to one DailyEntry.
// Temperatures give the high/low, humidity and wind are averaged, and the
// sample at the bucket's midpoint (index n/2) supplies description and icon.
func DailyForecast(series RawForecastSeries, f Formatter) []DailyEntry {
	var (
		keys    []string
		buckets = make(map[string][]RawForecastSample)
	)

	for _, s := range series.List {
		k := DateKey(s.Dt)
		if _, exists := buckets[k]; !exists {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], s)
	}

	out := make([]DailyEntry, 0, min(len(keys), MaxDailyEntries))
	for _, k := range keys {
		if len(out) >= MaxDailyEntries {
			break
		}
		out = append(out, aggregateDay(k, buckets[k], f))
	}
	return out
}

func aggregateDay(key string, samples []RawForecastSample, f Formatter) DailyEntry {
	high := samples[0].Main.Temp
	low := samples[0].Main.Temp

	var sumHumidity, sumWind float64
	for _, s := range samples {
		if s.Main.Temp > high {
			high = s.Main.Temp
		}
		if s.Main.Temp < low {
			low = s.Main.Temp
		}
		sumHumidity += s.Main.Humidity
		sumWind += s.Wind.Speed
	}

	n := float64(len(samples))
	rep := representative(samples)

	return DailyEntry{
		Date:          key,
		Day:           f.Weekday(key),
		TempHigh:      Round(high),
		TempLow:       Round(low),
		Description:   rep.Description,
		Icon:          rep.Icon,
		Humidity:      Round(sumHumidity / n),
		WindSpeed:     MPSToKPH(sumWind / n),
		Precipitation: 0,
	}
}

// representative picks the midpoint sample's condition, falling back to the
// first sample when the midpoint carries none.
func representative(samples []RawForecastSample) RawCondition {
	mid := len(samples) / 2
	if len(samples[mid].Weather) > 0 {
		return samples[mid].Weather[0]
	}
	return primaryCondition(samples[0].Weather)
}

// BuildForecast derives both forecast views from one series.
func BuildForecast(series RawForecastSeries, f Formatter) Forecast {
	return Forecast{
		Hourly: HourlyForecast(series, f),
		Daily:  DailyForecast(series, f),
	}
}
