package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Token Arena API
// @version         0.1.0
// @description     Rounds, plays, leaderboards, and Telegram session auth.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
