package mcpserver

// PostFormatContract describes the page format LLM consumers should follow
// when creating posts.
const PostFormatContract = `# Folio Post Format

Every post is a UTF-8 Markdown file under the pages directory.

## Structure

` + "```" + `markdown
---
title: 배드민턴 라켓 브랜드 정리     # shown on the card and the post page
date: 2025-11-20                    # YYYY-MM-DD; orders the listing
category: 배드민턴                  # OPTIONAL
tags: ["요넥스", "빅터", "라켓"]      # OPTIONAL; JSON array or [a, b]
excerpt: 브랜드별 라켓 비교           # OPTIONAL; card summary
---

Intro paragraph, shown above the sections.

## 요넥스
Section body.

## [빅터](https://www.victorsport.com)
A linked heading adds a source button to the section.
` + "```" + `

## Rules

1. The header is optional. When present, the ` + "`---`" + ` fence must be the very
   first line and is closed by a second ` + "`---`" + ` line.
2. Header lines are ` + "`key: value`" + `. Keys are lower case. Values may be
   wrapped in single or double quotes. A repeated key keeps its last value.
3. Without a ` + "`title`" + `, the file name (minus ` + "`.md`" + `) is the title.
4. ` + "`tags`" + ` is a bracketed list. Tags named after a section (see
   ` + "`classify_heading`" + `) become links that open that section.
5. Every ` + "`## `" + ` heading starts a collapsible section. Text before the first
   one is the intro. Headings are classified into stable section ids (for
   example 요넥스 → yonex, 마무리 → outro); unmatched headings get section-N.
6. File names end with ` + "`.md`" + `, use forward slashes, and contain no ` + "`..`" + `.
7. Raw HTML is sanitised on render; prefer Markdown.
`
