package ingest

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// junitTestSuites matches both <testsuites> roots and bare <testsuite>
// roots; testcase elements are collected from either shape.
type junitTestSuites struct {
	XMLName xml.Name
	Suites  []junitTestSuite `xml:"testsuite"`
	Cases   []junitTestCase  `xml:"testcase"`
}

type junitTestSuite struct {
	Name   string           `xml:"name,attr"`
	Suites []junitTestSuite `xml:"testsuite"`
	Cases  []junitTestCase  `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitOutcome `xml:"failure"`
	Error     *junitOutcome `xml:"error"`
	Skipped   *junitOutcome `xml:"skipped"`
}

type junitOutcome struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// parseJUnit reads JUnit XML. JUnit carries no input or expected output, so
// records keep only the identity, verdict, and failure text; skipped cases
// are counted but excluded.
func parseJUnit(data []byte) (*Batch, error) {
	var root junitTestSuites
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}

	batch := &Batch{}
	index := 0
	var walk func(cases []junitTestCase, suites []junitTestSuite)
	walk = func(cases []junitTestCase, suites []junitTestSuite) {
		for _, tc := range cases {
			if tc.Skipped != nil {
				batch.skip(fmt.Sprintf("testcase %d (%s): skipped in suite", index, tc.Name))
				index++
				continue
			}
			batch.add(junitRecord(tc), index)
			index++
		}
		for _, s := range suites {
			walk(s.Cases, s.Suites)
		}
	}
	walk(root.Cases, root.Suites)
	return batch, nil
}

func junitRecord(tc junitTestCase) types.TestRecord {
	id := tc.Name
	if tc.ClassName != "" {
		id = tc.ClassName + "::" + tc.Name
	}
	rec := types.TestRecord{
		ID:     id,
		Name:   tc.Name,
		Passed: tc.Failure == nil && tc.Error == nil,
		// JUnit has no input field; an empty text output keeps the
		// record valid so pass/fail totals stay accurate.
		Actual: types.TextValue(""),
	}

	outcome := tc.Failure
	if outcome == nil {
		outcome = tc.Error
	}
	if outcome != nil {
		rec.ErrorMessage = strings.TrimSpace(outcome.Message)
		if body := strings.TrimSpace(outcome.Body); body != "" {
			rec.Actual = types.TextValue(body)
		}
	}
	return rec
}
