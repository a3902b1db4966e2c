package booking

import (
	"fmt"
	"strings"
)

// The ownership marker is the identifying line embedded in a reservation's
// description. The structured side-index is the primary ownership record;
// the marker keeps reservations attributable when only the calendar entry
// survives, and stays human-readable for anyone opening the event.
const (
	markerPrefix     = "commonroom:owner:"
	paymentRefPrefix = "commonroom:payment:"
)

// OwnershipMarker renders the marker line for a (guild, user) pair.
func OwnershipMarker(guildID, userID string) string {
	return fmt.Sprintf("%s%s/%s", markerPrefix, guildID, userID)
}

// BuildDescription assembles the reservation description: the booker's
// display line, the ownership marker, the payment reference and the
// cancellation instructions.
func BuildDescription(guildID, userID, paymentRef, priceText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booked by <@%s>\n", userID)
	fmt.Fprintf(&b, "Paid: %s\n", priceText)
	fmt.Fprintf(&b, "%s\n", OwnershipMarker(guildID, userID))
	fmt.Fprintf(&b, "%s%s\n", paymentRefPrefix, paymentRef)
	b.WriteString("To cancel, use the cancel command in your community. Refund: 100% more than 24h before start, 50% after.")
	return b.String()
}

// OwnerFromDescription extracts the (guild, user) pair from a marker line,
// if one is present.
func OwnerFromDescription(description string) (guildID, userID string, ok bool) {
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, markerPrefix) {
			continue
		}
		rest := strings.TrimPrefix(line, markerPrefix)
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	}
	return "", "", false
}

// PaymentRefFromDescription extracts the embedded payment reference, or "".
func PaymentRefFromDescription(description string) string {
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, paymentRefPrefix) {
			return strings.TrimPrefix(line, paymentRefPrefix)
		}
	}
	return ""
}
