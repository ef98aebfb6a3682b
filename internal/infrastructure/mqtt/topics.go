package mqtt

import "fmt"

// Topic names used between the gateway and the stations.
//
// Requests and replies use flat topics so that small devices can
// subscribe without wildcards: a station publishes "<city> [<mood>]" to
// the request topic and listens on the topic named after the city.
const (
	// TopicRequests is the default topic the gateway listens on.
	TopicRequests = "requests"

	// TopicPrefixStatus is the base for retained online/offline status.
	TopicPrefixStatus = "moodcast/status"
)

// Topics provides builders for Moodcast MQTT topics.
//
//	topics := mqtt.Topics{}
//	reply := topics.Reply("Brno")
//	// Returns: "Brno"
type Topics struct{}

// Requests returns the default request topic.
//
// Example: requests
func (Topics) Requests() string {
	return TopicRequests
}

// Reply returns the topic a city's replies are published on.
//
// Example: Brno
func (Topics) Reply(city string) string {
	return city
}

// Status returns the retained status topic for a client.
//
// Example: moodcast/status/moodcast-gateway
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixStatus, clientID)
}

// AllStatus returns a pattern matching every client's status.
//
// Pattern: moodcast/status/+
func (Topics) AllStatus() string {
	return fmt.Sprintf("%s/+", TopicPrefixStatus)
}
