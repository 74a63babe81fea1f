// Kartalytics watches Mario Kart capture output, classifies each frame and
// reports races to the ingest endpoint
package main

func main() {
	Execute()
}
