package main

import "github.com/agromarket/payments/cmd"

// @title AgroMarket Payments API
// @version 1.0
// @description Simulated payment gateway for the AgroMarket agricultural marketplace.
// @BasePath /api/v1
func main() {
	cmd.Execute()
}
