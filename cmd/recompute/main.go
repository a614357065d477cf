package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// recompute is the trigger the external daily scheduler runs (cron, k8s CronJob).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	baseURL := os.Getenv("ENGINE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(baseURL+"/api/baselines/v1/recompute", "application/json", nil)
	if err != nil {
		log.Fatalf("Error: recompute request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Fatalf("Error: invalid response (%s): %v", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		log.Fatalf("Error: recompute failed (%s): %s", resp.Status, body.Message)
	}

	fmt.Printf("✅ %s: %s\n", body.Message, string(body.Data))
}
