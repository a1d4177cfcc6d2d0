// Package parser extracts device identifiers and descriptions from pactl
// listings.
package parser

import (
	"bufio"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// descriptionWindow is how many lines after a device's name line are
// searched for its Description.
const descriptionWindow = 20

// ShortEntry is one row of `pactl list sinks short` or `pactl list sources short`.
type ShortEntry struct {
	ID     string
	Name   string
	Driver string
	Spec   string
	State  string
}

var (
	// 57	alsa_output.pci-0000_00_1f.3.analog-stereo	PipeWire	s32le 2ch 48000Hz	SUSPENDED
	shortRegex = regexp.MustCompile(`^(?P<ID>\d+)\s+(?P<Name>\S+)(?:\s+(?P<Driver>\S+))?(?:\s+(?P<Spec>\S+\s+\S+\s+\S+))?(?:\s+(?P<State>\S+))?\s*$`)

	// 	Name: alsa_output.pci-0000_00_1f.3.analog-stereo
	nameRegex = regexp.MustCompile(`^\s*Name:\s*(?P<Name>.+?)\s*$`)

	// 	Description: Built-in Audio Analog Stereo
	descriptionRegex = regexp.MustCompile(`^\s*Description:\s*(?P<Description>.+?)\s*$`)
)

// ParseShort parses the short listing format. Lines that do not start with
// a numeric id are skipped.
func ParseShort(out string) []ShortEntry {
	var entries []ShortEntry
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := shortRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, ShortEntry{
			ID:     m[shortRegex.SubexpIndex("ID")],
			Name:   m[shortRegex.SubexpIndex("Name")],
			Driver: m[shortRegex.SubexpIndex("Driver")],
			Spec:   m[shortRegex.SubexpIndex("Spec")],
			State:  m[shortRegex.SubexpIndex("State")],
		})
	}
	return entries
}

// FindID returns the numeric id of the device called name in a short listing.
func FindID(out, name string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "", false
	}
	for _, e := range ParseShort(out) {
		if SameDevice(e.Name, name) {
			return e.ID, true
		}
	}
	return "", false
}

// FindDescription finds the device called name in a long `pactl list`
// listing and returns the Description reported within the following lines.
// A "Name: <name>" line is preferred; otherwise the first line mentioning
// the name is used as the anchor.
func FindDescription(listing, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	lines := strings.Split(listing, "\n")

	anchor := -1
	for i, line := range lines {
		if m := nameRegex.FindStringSubmatch(line); m != nil && SameDevice(m[1], name) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		needle := Normalize(name)
		for i, line := range lines {
			if strings.Contains(Normalize(line), needle) {
				anchor = i
				break
			}
		}
	}
	if anchor < 0 {
		return "", false
	}

	end := anchor + descriptionWindow
	if end > len(lines) {
		end = len(lines)
	}
	for _, line := range lines[anchor:end] {
		if m := descriptionRegex.FindStringSubmatch(line); m != nil {
			return norm.NFC.String(m[1]), true
		}
	}
	return "", false
}

// Normalize folds case and composes unicode so device names reported by
// different tools compare equal.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// SameDevice reports whether two device names refer to the same device.
func SameDevice(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
