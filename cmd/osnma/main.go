// Command osnma replays a Galileo OSNMA EUSPA test-vector file through the
// authentication engine and prints the outcome of every tag it processes.
package main

func main() {
	Execute()
}
