// ABOUTME: Build identity constants
// ABOUTME: Used in bridge handshake device info

package version

const (
	// Version is the software version reported to executors.
	Version = "0.1.0"

	// Product is the product name reported to executors.
	Product = "MediaRec Player"

	// Manufacturer is the manufacturer reported to executors.
	Manufacturer = "MediaRec Project"
)
