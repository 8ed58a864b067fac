package models

import (
	"strings"
)

type Algorithm string

const (
	AlgorithmLinearRegression   Algorithm = "linear-regression"
	AlgorithmLogisticRegression Algorithm = "logistic-regression"
	AlgorithmKNN                Algorithm = "knn"
	AlgorithmKMeans             Algorithm = "k-means-clustering"
	AlgorithmDecisionTree       Algorithm = "decision-tree"
	AlgorithmSVM                Algorithm = "svm"
)

// Algorithms lists the supported algorithms in display order.
var Algorithms = []Algorithm{
	AlgorithmLinearRegression,
	AlgorithmLogisticRegression,
	AlgorithmKNN,
	AlgorithmKMeans,
	AlgorithmDecisionTree,
	AlgorithmSVM,
}

var algorithmAliases = map[string]Algorithm{
	"k-means":            AlgorithmKMeans,
	"kmeans":             AlgorithmKMeans,
	"k-means-clustering": AlgorithmKMeans,
}

// ParseAlgorithm accepts the canonical identifier as well as the underscore
// form the trainer uses ("k_means_clustering").
func ParseAlgorithm(s string) (Algorithm, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if a, ok := algorithmAliases[norm]; ok {
		return a, true
	}
	for _, a := range Algorithms {
		if string(a) == norm {
			return a, true
		}
	}
	return "", false
}

// TrainerName is the model name passed to the trainer and predictor binaries.
func (a Algorithm) TrainerName() string {
	return TrainerModelName(string(a))
}

// TrainerModelName converts any algorithm string to trainer naming.
func TrainerModelName(s string) string {
	if a, ok := ParseAlgorithm(s); ok {
		return strings.ReplaceAll(string(a), "-", "_")
	}
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "_")
}

func (a Algorithm) DisplayName() string {
	switch a {
	case AlgorithmKMeans:
		return "K-Means Clustering"
	case AlgorithmKNN:
		return "KNN"
	case AlgorithmSVM:
		return "SVM"
	}
	words := strings.Split(string(a), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// IsClustering reports whether the algorithm is unsupervised, in which case
// every dataset column is a feature.
func (a Algorithm) IsClustering() bool {
	return a == AlgorithmKMeans
}

// UsesK reports whether predictions for the algorithm carry a k value.
func (a Algorithm) UsesK() bool {
	return a == AlgorithmKNN || a == AlgorithmKMeans
}
