package server

import (
	"github.com/malonaz/ragchat/store"
)

// SampleKnowledgeBases are the knowledge bases an empty database is seeded with.
func SampleKnowledgeBases() []*store.KnowledgeBase {
	return []*store.KnowledgeBase{
		{
			Name:             "Go 并发编程",
			Category:         "编程语言",
			OriginalFilename: "go-concurrency.pdf",
			FileSize:         2_457_600,
			ContentType:      "application/pdf",
		},
		{
			Name:             "分布式系统设计",
			Category:         "系统设计",
			OriginalFilename: "distributed-systems.md",
			FileSize:         412_300,
			ContentType:      "text/markdown",
		},
		{
			Name:             "数据库索引原理",
			Category:         "数据库",
			OriginalFilename: "database-indexing.docx",
			FileSize:         1_048_576,
			ContentType:      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		{
			Name:             "面试常见问题",
			Category:         "面试",
			OriginalFilename: "interview-faq.txt",
			FileSize:         98_304,
			ContentType:      "text/plain",
		},
	}
}
