package search

import "fmt"

const productSearchTemplate = `You are a shopping assistant. Find products that match the request below.
Answer with JSON only, without prose or code fences.
If the request is specific enough, answer {"Name":[{"name":"<product name>"}]} with up to 5 concrete products.
Otherwise answer {"AdditionalQuestion":[{"questionText":"<question>"}]} with up to 3 questions that would narrow the search.
Request: %s`

const recommendationTemplate = `You are a shopping assistant. Recommend products that go well with the product below.
Answer with JSON only, without prose or code fences, in the form {"Recommendation":["<product>"]} with up to 5 entries.
Product: %s`

const newSearchTemplate = `You are a shopping assistant helping a user start a new wishlist.
Answer with JSON only, without prose or code fences.
List the products the wishlist should start with as {"Name":[{"name":"<product name>"}]}, up to 5 entries.
If you cannot tell what the user wants, answer {"AdditionalQuestion":[{"questionText":"<question>"}]} with up to 3 questions instead.
Wishlist request: %s`

func productSearchPrompt(text string) string {
	return fmt.Sprintf(productSearchTemplate, text)
}

func recommendationPrompt(text string) string {
	return fmt.Sprintf(recommendationTemplate, text)
}

func newSearchPrompt(text string) string {
	return fmt.Sprintf(newSearchTemplate, text)
}
