package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var rule = strings.Repeat("=", 70)

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func msf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Render writes the console report.
func (r Report) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	o := r.Overall

	ew.printf("\n%s\n📊 LOAD TEST REPORT\n%s\n", rule, rule)
	ew.printf("Run ID         : %s\n", r.RunID)
	ew.printf("Virtual Users  : %d\n", r.Users)
	ew.printf("Budget         : %s\n", r.Budget)

	ew.printf("\n📈 Overall Performance:\n")
	ew.printf("   Total Operations      : %d\n", o.Total)
	ew.printf("   Successful            : %d (%.2f%%)\n", o.Success, o.SuccessPct)
	ew.printf("   Failed                : %d (%.2f%%)\n", o.Fail, o.FailPct)
	ew.printf("   Average Response Time : %.2fms\n", msf(o.AvgResponse))
	ew.printf("   P50 / P95 / P99 / Max : %.2f / %.2f / %.2f / %.2f ms\n", msf(o.P50), msf(o.P95), msf(o.P99), msf(o.Max))
	ew.printf("   Operations Per Second : %.2f\n", o.OpsPerSecond)
	ew.printf("   Total Duration        : %s\n", o.Elapsed.Round(time.Millisecond))
	if !o.Completed {
		ew.printf("   ⏳ Budget elapsed before all users finished")
		if o.Abandoned > 0 {
			ew.printf(" (%d abandoned)", o.Abandoned)
		}
		ew.printf("\n")
	}

	if m := r.Memory; m != nil {
		ew.printf("\n💾 Memory Usage:\n")
		ew.printf("   Start : %.2f MB\n", m.StartMB)
		ew.printf("   End   : %.2f MB\n", m.EndMB)
		sign := ""
		if m.DeltaMB > 0 {
			sign = "+"
		}
		ew.printf("   Delta : %s%.2f MB\n", sign, m.DeltaMB)
		if m.LimitMB > 0 {
			ew.printf("   Limit : %.2f MB\n", m.LimitMB)
			ew.printf("   Usage : %.2f%%\n", m.UsagePct)
		} else {
			ew.printf("   Limit : unlimited\n")
		}
	}

	l := r.Listener
	ew.printf("\n📡 Real-time Listener Performance:\n")
	ew.printf("   Listener Type      : %s\n", l.ListenerType)
	ew.printf("   Updates Received   : %d\n", l.UpdatesReceived)
	ew.printf("   Updates Per Second : %.2f\n", l.UpdatesPerSecond)
	ew.printf("   Memory Delta       : %.2f MB\n", l.MemoryDeltaMB)
	if l.Error != "" {
		ew.printf("   Error              : %s\n", l.Error)
	}

	if d := r.Dashboard; d != nil {
		ew.printf("\n📊 Dashboard Population Performance (%s):\n", d.Role)
		ew.printf("   Average Load Time : %.2fms\n", msf(d.Average))
		ew.printf("   Tests Completed   : %d/%d\n", d.Completed, d.Attempted)
	}

	if a := r.Approvals; a != nil {
		ew.printf("\n✅ Approvals:\n")
		ew.printf("   Approved      : %d/%d\n", a.Succeeded, a.Attempted)
		ew.printf("   Average Time  : %.2fms\n", msf(a.Average))
	}

	if len(r.Errors) > 0 {
		ew.printf("\n❌ Errors:\n")
		for i, e := range r.Errors {
			ew.printf("   %d. %s (User: %d, Response: %.2fms)\n", i+1, e.Message, e.UserID, msf(e.ResponseTime))
		}
		if more := r.ErrorCount - len(r.Errors); more > 0 {
			ew.printf("   ... and %d more errors\n", more)
		}
	}

	ew.printf("\n💡 Recommendations:\n")
	if len(r.Recommendations) == 0 {
		ew.printf("   👍 No issues detected.\n")
	}
	for _, rec := range r.Recommendations {
		ew.printf("   ⚠️  %s\n", rec.Message)
	}
	ew.printf("\n%s\n", rule)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
