// Package graph serves the feed over a single GraphQL endpoint.
package graph

// Schema is the GraphQL SDL. Field names match the REST JSON bodies.
const Schema = `
	schema {
		query: Query
		mutation: Mutation
	}

	type Query {
		login(email: String!, password: String!): AuthData!
		posts(page: Int): PostData!
		post(id: ID!): Post!
		user: User!
	}

	type Mutation {
		createUser(userInput: UserInputData!): User!
		createPost(postInput: PostInputData!): Post!
		updatePost(id: ID!, postInput: PostInputData!): Post!
		deletePost(id: ID!): Boolean!
		updateStatus(status: String!): User!
	}

	type Post {
		_id: ID!
		title: String!
		content: String!
		imageUrl: String!
		creator: Creator!
		createdAt: String!
		updatedAt: String!
	}

	type Creator {
		_id: ID!
		name: String!
	}

	type User {
		_id: ID!
		name: String!
		email: String!
		status: String!
		posts: [ID!]!
	}

	type AuthData {
		token: String!
		userId: String!
	}

	type PostData {
		posts: [Post!]!
		totalPosts: Int!
	}

	input UserInputData {
		email: String!
		name: String!
		password: String!
	}

	input PostInputData {
		title: String!
		content: String!
		imageUrl: String
	}
`
