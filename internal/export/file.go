// Package export writes run results to files, Kafka and S3.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"bookload/internal/report"
	"bookload/internal/runner"
)

// Document is the full JSON export of one run.
type Document struct {
	Report     report.Report            `json:"report"`
	Results    []runner.OperationResult `json:"results"`
	Dashboards []runner.DashboardResult `json:"dashboards,omitempty"`
	Approvals  []runner.ApprovalResult  `json:"approvals,omitempty"`
}

func NewDocument(out runner.Outcome, rep report.Report) Document {
	return Document{
		Report:     rep,
		Results:    out.Results(),
		Dashboards: out.Dashboards,
		Approvals:  out.Approvals,
	}
}

// ExportCSV exports submissions to a JMeter-compatible CSV file.
// Schema: timeStamp,elapsed,label,responseCode,responseMessage,threadName,dataType,success,failureMessage,bytes,sentBytes,grpThreads,allThreads,URL,Latency,IdleTime,Connect
func ExportCSV(results []runner.OperationResult, users int, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "dataType", "success", "failureMessage", "bytes",
		"sentBytes", "grpThreads", "allThreads", "URL", "Latency", "IdleTime", "Connect",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	threads := strconv.Itoa(users)
	for _, res := range results {
		elapsed := strconv.FormatInt(res.ResponseTime.Milliseconds(), 10)
		code, msg := "200", "OK"
		if !res.Success {
			code, msg = "500", "Error"
		}
		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			elapsed,
			"CreateBooking",
			code,
			msg,
			fmt.Sprintf("User-%d", res.UserID),
			"text",
			strconv.FormatBool(res.Success),
			res.Err,
			"0",
			"0",
			threads,
			threads,
			res.BookingID, // URL column carries the booking id
			elapsed,
			"0",
			"0",
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func ExportJSON(doc Document, filename string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

func ExportYAML(rep report.Report, filename string) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// ExportAll writes <prefix>.csv, <prefix>.json and <prefix>.yaml and
// returns the written paths.
func ExportAll(prefix string, out runner.Outcome, rep report.Report) ([]string, error) {
	files := []string{prefix + ".csv", prefix + ".json", prefix + ".yaml"}
	if err := ExportCSV(out.Results(), out.Config.Users, files[0]); err != nil {
		return nil, fmt.Errorf("csv export: %w", err)
	}
	if err := ExportJSON(NewDocument(out, rep), files[1]); err != nil {
		return nil, fmt.Errorf("json export: %w", err)
	}
	if err := ExportYAML(rep, files[2]); err != nil {
		return nil, fmt.Errorf("yaml export: %w", err)
	}
	return files, nil
}
