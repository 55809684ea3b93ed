// ZakuHead - face-tracking pan turret controller
// Pulls frames from the turret camera, finds the nearest face and keeps it centered.
package main

func main() {
	Execute()
}
