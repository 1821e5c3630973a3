// Package main is the entry point for the medinotes service: an API for
// processing medical notes through AWS Bedrock, generating note embeddings,
// and serving conversation history for the patient chatbot.
package main

import "medinotes/cmd"

func main() {
	cmd.Execute()
}
