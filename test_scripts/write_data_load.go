package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const defaultBatchSize = 100

// Reading is the shape of each record sent to the gateway
type Reading struct {
	ID       string  `json:"id"`
	Sensor   string  `json:"sensor"`
	Value    float64 `json:"value"`
	Recorded string  `json:"recorded"`
}

type writeRequest struct {
	Collection string    `json:"db_collection"`
	Token      string    `json:"token"`
	Data       []Reading `json:"data"`
	IDField    string    `json:"id_field"`
}

type writeResponse struct {
	Type    string            `json:"type"`
	Data    []json.RawMessage `json:"data"`
	Message string            `json:"message"`
}

// generateReading builds a reading; every duplicateEvery-th reading reuses a previous id
func generateReading(previous []string, duplicateEvery int) Reading {
	id := uuid.NewString()
	if duplicateEvery > 0 && len(previous) > 0 && rand.Intn(duplicateEvery) == 0 {
		id = previous[rand.Intn(len(previous))]
	}
	return Reading{
		ID:       id,
		Sensor:   fmt.Sprintf("sensor-%02d", rand.Intn(16)),
		Value:    rand.Float64() * 100,
		Recorded: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// postBatch sends one batch and returns how many records the gateway reported as inserted
func postBatch(baseURL string, req writeRequest) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal batch: %w", err)
	}

	resp, err := http.Post(baseURL+"/data", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var out writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, out.Message)
	}
	return len(out.Data), nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run test_scripts/write_data_load.go <number_of_records> [server_url] [batch_size]")
		fmt.Println("Example: go run test_scripts/write_data_load.go 10000")
		fmt.Println("Example: go run test_scripts/write_data_load.go 10000 http://localhost:8000 500")
		fmt.Println("Reads ACCESS_TOKEN and LOAD_COLLECTION from the environment or .env")
		os.Exit(1)
	}

	numRecords, err := strconv.Atoi(os.Args[1])
	if err != nil || numRecords <= 0 {
		fmt.Printf("Error: Invalid number of records '%s'. Please provide a positive integer.\n", os.Args[1])
		os.Exit(1)
	}

	serverURL := "http://localhost:8000"
	if len(os.Args) >= 3 {
		serverURL = os.Args[2]
	}

	batchSize := defaultBatchSize
	if len(os.Args) >= 4 {
		if batchSize, err = strconv.Atoi(os.Args[3]); err != nil || batchSize <= 0 {
			fmt.Printf("Error: Invalid batch size '%s'\n", os.Args[3])
			os.Exit(1)
		}
	}

	_ = godotenv.Load()
	token := os.Getenv("ACCESS_TOKEN")
	collection := os.Getenv("LOAD_COLLECTION")
	if collection == "" {
		collection = os.Getenv("MONGO_COLLECTIONS_PREFIX") + "load_test"
	}

	fmt.Printf("Starting load test: writing %d records to %s/%s in batches of %d\n", numRecords, serverURL, collection, batchSize)
	fmt.Println("Press Ctrl+C to stop early")

	startTime := time.Now()
	sent, inserted, errorCount := 0, 0, 0
	var ids []string

	for sent < numRecords {
		n := min(batchSize, numRecords-sent)
		batch := make([]Reading, n)
		for i := range batch {
			batch[i] = generateReading(ids, 20)
			ids = append(ids, batch[i].ID)
		}

		count, err := postBatch(serverURL, writeRequest{Collection: collection, Token: token, Data: batch, IDField: "id"})
		if err != nil {
			errorCount++
			fmt.Printf("Error writing batch at record %d: %v\n", sent, err)
		} else {
			inserted += count
		}
		sent += n

		elapsed := time.Since(startTime)
		fmt.Printf("Progress: %d/%d records (%.1f%%) - Rate: %.1f records/sec - Inserted: %d, Failed batches: %d\n",
			sent, numRecords, float64(sent)/float64(numRecords)*100, float64(sent)/elapsed.Seconds(), inserted, errorCount)
	}

	totalTime := time.Since(startTime)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LOAD TEST COMPLETE")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Records sent:          %d\n", sent)
	fmt.Printf("Records inserted:      %d\n", inserted)
	fmt.Printf("Not inserted:          %d\n", sent-inserted)
	fmt.Printf("Failed batches:        %d\n", errorCount)
	fmt.Printf("Total time:            %v\n", totalTime)
	fmt.Printf("Average rate:          %.2f records/sec\n", float64(sent)/totalTime.Seconds())

	if errorCount > 0 {
		fmt.Printf("\nWarning: %d batches failed during the load test\n", errorCount)
		os.Exit(1)
	}

	fmt.Println("\nLoad test completed successfully!")
}
