package core

import (
	"strconv"
	"strings"
)

type APIVersion string

const (
	APIVersionApril19   APIVersion = "2019-04"
	APIVersionJuly19    APIVersion = "2019-07"
	APIVersionOctober19 APIVersion = "2019-10"
	APIVersionJanuary20 APIVersion = "2020-01"
	APIVersionApril20   APIVersion = "2020-04"
	APIVersionJuly20    APIVersion = "2020-07"
	APIVersionOctober20 APIVersion = "2020-10"
	APIVersionJanuary21 APIVersion = "2021-01"
	APIVersionApril21   APIVersion = "2021-04"
	APIVersionJuly21    APIVersion = "2021-07"
	APIVersionOctober21 APIVersion = "2021-10"
	APIVersionJanuary22 APIVersion = "2022-01"
	APIVersionApril22   APIVersion = "2022-04"
	APIVersionJuly22    APIVersion = "2022-07"
	APIVersionOctober22 APIVersion = "2022-10"
	APIVersionJanuary23 APIVersion = "2023-01"
	APIVersionApril23   APIVersion = "2023-04"
	APIVersionJuly23    APIVersion = "2023-07"
	APIVersionOctober23 APIVersion = "2023-10"
	APIVersionJanuary24 APIVersion = "2024-01"
	APIVersionApril24   APIVersion = "2024-04"
	APIVersionJuly24    APIVersion = "2024-07"
	APIVersionOctober24 APIVersion = "2024-10"

	APIVersionUnstable    APIVersion = "unstable"
	APIVersionUnversioned APIVersion = "unversioned"
)

const (
	// EventBridgeMinVersion is also the first version exposing the
	// subscription endpoint union.
	EventBridgeMinVersion = APIVersionJuly20
	PubSubMinVersion      = APIVersionJuly21
)

func (v APIVersion) String() string {
	return string(v)
}

func (v APIVersion) IsSentinel() bool {
	return v == APIVersionUnstable || v == APIVersionUnversioned
}

// Valid accepts the sentinels and any YYYY-MM value.
func (v APIVersion) Valid() bool {
	if v.IsSentinel() {
		return true
	}
	_, ok := numericVersion(v)
	return ok
}

// VersionCompatible reports whether current is at or after reference.
// Sentinel versions are always compatible.
func VersionCompatible(reference, current APIVersion) bool {
	if current.IsSentinel() {
		return true
	}
	cur, ok := numericVersion(current)
	if !ok {
		return false
	}
	ref, ok := numericVersion(reference)
	if !ok {
		return false
	}
	return cur >= ref
}

func numericVersion(v APIVersion) (int, bool) {
	raw := strings.TrimSpace(string(v))
	if len(raw) != 7 || raw[4] != '-' {
		return 0, false
	}
	value, err := strconv.Atoi(strings.Replace(raw, "-", "", 1))
	if err != nil {
		return 0, false
	}
	return value, true
}
