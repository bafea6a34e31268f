/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "strconv"

func Fahrenheit(celsius int) int {
	return jsRound(float64(celsius)*9/5 + 32)
}

// FormatTemperature renders a Celsius value in the player's chosen unit.
// It is for display only; answers are always compared in Celsius.
func FormatTemperature(celsius int, metric bool) string {
	if metric {
		return strconv.Itoa(celsius) + "°C"
	}

	return strconv.Itoa(Fahrenheit(celsius)) + "°F"
}

// FormatPair renders a pair as "high / low".
func FormatPair(p TemperaturePair, metric bool) string {
	return FormatTemperature(p.High, metric) + " / " + FormatTemperature(p.Low, metric)
}
