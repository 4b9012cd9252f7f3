package main

import client "github.com/nrawrx3/unolink/player_client"

func main() {
	client.RunApp()
}
