/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds the round lifecycle and the decoy generator that turn
// one day's forecast into a four-way multiple choice question.
package game

import (
	"errors"
	"fmt"

	"github.com/Seednode/weathrguessr/cities"
)

// ChoiceCount is the number of options shown each round.
const ChoiceCount = 4

// TemperaturePair is a daily high and low, in whole degrees Celsius.
type TemperaturePair struct {
	High int `json:"high"`
	Low  int `json:"low"`
}

// Spread returns High - Low.
func (p TemperaturePair) Spread() int {
	return p.High - p.Low
}

type Choice struct {
	Pair    TemperaturePair `json:"pair"`
	Correct bool            `json:"correct"`
}

type RoundState int

const (
	Loading RoundState = iota
	Waiting
	Answered
)

func (s RoundState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Waiting:
		return "waiting"
	case Answered:
		return "answered"
	}

	return fmt.Sprintf("RoundState(%d)", int(s))
}

// Round is a snapshot of the active round. Choices and CorrectIndex are
// only populated once the round has left Loading.
type Round struct {
	ID           string
	City         cities.City
	ImageURL     string
	Truth        TemperaturePair
	Choices      [ChoiceCount]Choice
	CorrectIndex int
	State        RoundState
}

// Outcome is reported once per round, on the first accepted selection.
type Outcome struct {
	Correct      bool
	Selected     int
	CorrectIndex int
	Truth        TemperaturePair
	Stats        Stats
}

// ErrNoCities is returned when a controller is built over an empty catalog.
var ErrNoCities = errors.New("city catalog is empty")

// DataFetchError aborts a round when the forecast could not be loaded.
type DataFetchError struct {
	City cities.City
	Err  error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("loading forecast for %s: %v", e.City, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}
