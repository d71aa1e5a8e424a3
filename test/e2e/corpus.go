// Package e2e drives the full query stack end to end: ingested corpus files,
// a seeded target database, and the HTTP API.
package e2e

import (
	"fmt"
	"strings"
)

// E2EDocument is one corpus entry. Each document carries a distinctive
// signature phrase so queries can assert the right file comes back.
type E2EDocument struct {
	ID      string
	Title   string
	Content string
}

// QueryTestCase is a document-lane query with the corpus IDs that must
// appear in the results. Query wraps Phrase in wording that routes to the
// document lane; Phrase is the raw signature text the expected documents
// contain.
type QueryTestCase struct {
	Query          string
	Phrase         string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for the end-to-end tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns 100 documents over 20 topics plus one query test case
// per topic. Topic phrases avoid the structured-lane keywords so the queries
// stay in the document lane.
func BuildCorpus() *Corpus {
	docs := buildDocuments(100)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

type corpusTopic struct {
	title   string
	phrase  string
	content string
}

var corpusTopics = []corpusTopic{
	{"Python Guide", "Python dynamic typed language", "Python is a high-level language for scripts and data work. The Python dynamic typed language favors readability and a large standard library."},
	{"Kubernetes Docs", "Kubernetes container orchestration", "Kubernetes schedules workloads across a cluster. Kubernetes container orchestration automates deployment, scaling, and recovery."},
	{"React Tutorial", "React hooks and components", "React renders user interfaces from state. React hooks and components keep view logic declarative and composable."},
	{"Go Language", "Go goroutines and channels", "Go is a statically typed compiled language. Go goroutines and channels make concurrent pipelines straightforward."},
	{"PostgreSQL Manual", "PostgreSQL query planner", "PostgreSQL is an advanced relational engine. The PostgreSQL query planner picks join orders from table statistics."},
	{"Docker Handbook", "Docker container images", "Docker packages applications with their runtime. Docker container images are layered and portable across hosts."},
	{"Machine Learning", "machine learning algorithms", "Statistical models generalize from examples. Machine learning algorithms learn patterns from labeled data."},
	{"Neural Networks", "neural network training", "Backpropagation adjusts weights layer by layer. Neural network training needs large datasets and careful tuning."},
	{"Redis Primer", "Redis key value caching", "Redis keeps hot data in memory. Redis key value caching cuts read latency for session and lookup data."},
	{"GraphQL Notes", "GraphQL schema design", "Clients ask for exactly the fields they need. GraphQL schema design shapes types around product use cases."},
	{"Rust Book", "Rust memory safety", "Ownership rules are checked at compile time. Rust memory safety removes whole classes of pointer bugs."},
	{"TypeScript Intro", "TypeScript type inference", "Types flow through assignments and returns. TypeScript type inference keeps annotations light without losing checks."},
	{"Kafka Streams", "Kafka partitioned topics", "Producers append records to replicated logs. Kafka partitioned topics decouple services through replayable events."},
	{"OAuth Walkthrough", "OAuth token authentication", "Authorization servers issue scoped credentials. OAuth token authentication lets services act for a user without passwords."},
	{"WebAssembly Reference", "WebAssembly binary format", "Modules compile to a compact bytecode. The WebAssembly binary format runs near native speed in browsers."},
	{"Elasticsearch Guide", "Elasticsearch inverted index", "Text is analyzed into terms at write time. The Elasticsearch inverted index maps each term to matching records."},
	{"gRPC Basics", "gRPC remote procedure calls", "Services define contracts in proto files. gRPC remote procedure calls use HTTP/2 streams and binary framing."},
	{"Terraform Guide", "Terraform infrastructure provisioning", "Desired state lives in version control. Terraform infrastructure provisioning plans and applies declarative changes."},
	{"CI Handbook", "continuous integration pipelines", "Every change builds and verifies automatically. Continuous integration pipelines catch regressions before merge."},
	{"Blockchain Notes", "blockchain distributed ledger", "Blocks chain through content hashes. A blockchain distributed ledger replicates history across untrusted peers."},
}

func buildDocuments(n int) []E2EDocument {
	docs := make([]E2EDocument, 0, n)
	for i := 0; i < n; i++ {
		topic := corpusTopics[i%len(corpusTopics)]
		content := topic.content
		if i >= len(corpusTopics) {
			variant := i/len(corpusTopics) + 1
			content = fmt.Sprintf("%s Edition %d adds worked examples and exercises.", content, variant)
		}
		docs = append(docs, E2EDocument{
			ID:      fmt.Sprintf("doc-%03d", i),
			Title:   topic.title,
			Content: content,
		})
	}
	return docs
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(corpusTopics))
	for ti, topic := range corpusTopics {
		expected := make([]string, 0, len(docs)/len(corpusTopics)+1)
		for di := ti; di < len(docs); di += len(corpusTopics) {
			expected = append(expected, docs[di].ID)
		}
		cases = append(cases, QueryTestCase{
			Query:          "find documents about " + topic.phrase,
			Phrase:         topic.phrase,
			ExpectedDocIDs: expected,
			Description:    topic.title,
		})
	}
	return cases
}

func containsPhrase(doc E2EDocument, phrase string) bool {
	haystack := strings.ToLower(doc.Title + " " + doc.Content)
	return strings.Contains(haystack, strings.ToLower(phrase))
}
