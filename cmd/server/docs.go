package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Channel Buyer API
// @version         0.1.0
// @description     Channel-triggered auto-buy pipeline: wallets, buy profiles, channel bindings, trade ledger.
// @host            localhost:3000
// @BasePath        /
// @schemes         http
